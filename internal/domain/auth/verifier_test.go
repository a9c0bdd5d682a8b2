package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestDetectHashType(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want string
	}{
		{"argon2id PHC format", "$argon2id$v=19$m=47104,t=1,p=1$abc123$xyz789", HashArgon2id},
		{"sha256 prefixed", "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashSHA256},
		{"bare sha256 hex", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashSHA256},
		{"too short", "abc123", HashUnknown},
		{"bcrypt", "$2a$10$abc", HashUnknown},
		{"empty", "", HashUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectHashType(tt.hash); got != tt.want {
				t.Errorf("DetectHashType(%q) = %q, want %q", tt.hash, got, tt.want)
			}
		})
	}
}

func TestVerifyKey(t *testing.T) {
	raw := "catalog-key-12345"
	argonHash, err := HashKeyArgon2id(raw)
	if err != nil {
		t.Fatalf("HashKeyArgon2id() error = %v", err)
	}
	if !strings.HasPrefix(argonHash, "$argon2id$") {
		t.Fatalf("hash %q is not PHC argon2id", argonHash)
	}

	tests := []struct {
		name    string
		raw     string
		stored  string
		want    bool
		wantErr error
	}{
		{"argon2id match", raw, argonHash, true, nil},
		{"argon2id mismatch", "wrong", argonHash, false, nil},
		{"sha256 prefixed match", raw, "sha256:" + HashKey(raw), true, nil},
		{"sha256 uppercase hex match", raw, strings.ToUpper(HashKey(raw)), true, nil},
		{"sha256 mismatch", "wrong", HashKey(raw), false, nil},
		{"malformed argon2id", raw, "$argon2id$v=19$m=65536,t=0,p=0$c2FsdA$aGFzaA", false, errors.New("any")},
		{"unknown", raw, "plain-text", false, ErrUnknownHashType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifyKey(tt.raw, tt.stored)
			switch {
			case tt.wantErr == ErrUnknownHashType:
				if !errors.Is(err, ErrUnknownHashType) {
					t.Errorf("err = %v, want ErrUnknownHashType", err)
				}
			case tt.wantErr != nil:
				if err == nil {
					t.Error("expected an error")
				}
			case err != nil:
				t.Errorf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("VerifyKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifier_Authenticate(t *testing.T) {
	argonHash, err := HashKeyArgon2id("frontend-secret")
	if err != nil {
		t.Fatal(err)
	}
	v, err := NewVerifier([]APIKey{
		{Name: "frontend", Hash: argonHash},
		{Name: "ops", Hash: "sha256:" + HashKey("ops-secret")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !v.Enabled() {
		t.Fatal("verifier with keys should be enabled")
	}

	for range 2 {
		name, err := v.Authenticate("frontend-secret")
		if err != nil || name != "frontend" {
			t.Errorf("Authenticate(frontend) = %q, %v", name, err)
		}
	}
	if name, _ := v.Authenticate("ops-secret"); name != "ops" {
		t.Errorf("Authenticate(ops) = %q", name)
	}
	if _, err := v.Authenticate("nope"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("wrong key err = %v, want ErrInvalidKey", err)
	}
	if _, err := v.Authenticate(""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("empty key err = %v, want ErrInvalidKey", err)
	}
}

func TestNewVerifier_RejectsUnknownHash(t *testing.T) {
	_, err := NewVerifier([]APIKey{{Name: "bad", Hash: "hunter2"}})
	if !errors.Is(err, ErrUnknownHashType) {
		t.Errorf("err = %v, want ErrUnknownHashType", err)
	}

	var empty *Verifier
	if empty.Enabled() {
		t.Error("nil verifier should be disabled")
	}
}
