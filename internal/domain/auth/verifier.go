// Package auth verifies API keys presented to the catalog API.
package auth

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalidKey is returned when no configured key matches.
	ErrInvalidKey = errors.New("invalid api key")

	// ErrUnknownHashType is returned when a stored hash has an unrecognised format.
	ErrUnknownHashType = errors.New("unknown hash type")
)

// APIKey is a configured key: a caller-facing name and the stored hash.
type APIKey struct {
	Name string
	Hash string
}

// Verifier matches raw bearer keys against the configured hashes. Successful
// argon2id matches are remembered by SHA-256 of the raw key so the expensive
// comparison runs once per key.
type Verifier struct {
	keys []APIKey

	mu       sync.RWMutex
	verified map[string]string
}

// NewVerifier validates every hash format up front.
func NewVerifier(keys []APIKey) (*Verifier, error) {
	for _, k := range keys {
		if DetectHashType(k.Hash) == HashUnknown {
			return nil, fmt.Errorf("api key %q: %w", k.Name, ErrUnknownHashType)
		}
	}
	return &Verifier{keys: keys, verified: make(map[string]string)}, nil
}

// Enabled reports whether any key is configured. Without keys the API is open.
func (v *Verifier) Enabled() bool {
	return v != nil && len(v.keys) > 0
}

// Authenticate returns the name of the key matching rawKey.
func (v *Verifier) Authenticate(rawKey string) (string, error) {
	if rawKey == "" {
		return "", ErrInvalidKey
	}
	fingerprint := HashKey(rawKey)

	v.mu.RLock()
	name, ok := v.verified[fingerprint]
	v.mu.RUnlock()
	if ok {
		return name, nil
	}

	for _, k := range v.keys {
		match, err := VerifyKey(rawKey, k.Hash)
		if err != nil || !match {
			continue
		}
		v.mu.Lock()
		v.verified[fingerprint] = k.Name
		v.mu.Unlock()
		return k.Name, nil
	}
	return "", ErrInvalidKey
}
