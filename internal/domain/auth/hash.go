package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
)

// Hash types recognised by VerifyKey.
const (
	HashArgon2id = "argon2id"
	HashSHA256   = "sha256"
	HashUnknown  = "unknown"
)

// HashKey returns the hex SHA-256 of rawKey. Prefer HashKeyArgon2id for
// configured keys.
func HashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// OWASP minimum: 46 MiB, one pass, one lane.
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashKeyArgon2id returns a salted Argon2id hash in PHC format:
// $argon2id$v=19$m=47104,t=1,p=1$<salt>$<hash>
func HashKeyArgon2id(rawKey string) (string, error) {
	return argon2id.CreateHash(rawKey, argon2idParams)
}

// DetectHashType classifies a stored hash as argon2id, sha256 ("sha256:<hex>"
// or 64 bare hex characters) or unknown.
func DetectHashType(stored string) string {
	switch {
	case strings.HasPrefix(stored, "$argon2id$"):
		return HashArgon2id
	case strings.HasPrefix(stored, "sha256:"):
		return HashSHA256
	case len(stored) == 64 && isHex(stored):
		return HashSHA256
	default:
		return HashUnknown
	}
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// VerifyKey checks rawKey against stored. It returns ErrUnknownHashType for
// unrecognised formats and never panics on malformed argon2id parameters.
func VerifyKey(rawKey, stored string) (bool, error) {
	switch DetectHashType(stored) {
	case HashArgon2id:
		return compareArgon2id(rawKey, stored)
	case HashSHA256:
		want := strings.TrimPrefix(stored, "sha256:")
		got := HashKey(rawKey)
		return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(want))) == 1, nil
	default:
		return false, ErrUnknownHashType
	}
}

// compareArgon2id recovers from the panic argon2 raises on zero rounds or lanes.
func compareArgon2id(rawKey, stored string) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("invalid argon2id hash parameters: %v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(rawKey, stored)
}
