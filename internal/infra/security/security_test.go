//go:build !integration

package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestEncryptionService(t *testing.T) {
	t.Run("should round trip and randomize nonces", func(t *testing.T) {
		svc, err := NewEncryptionService(strings.Repeat("k", 32))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		a, _ := svc.Encrypt("access-token")
		b, _ := svc.Encrypt("access-token")
		if a == b {
			t.Error("expected distinct ciphertexts for the same plaintext")
		}
		pt, err := svc.Decrypt(a)
		if err != nil || pt != "access-token" {
			t.Fatalf("decrypt: %q %v", pt, err)
		}
	})

	t.Run("should keep empty values empty", func(t *testing.T) {
		svc, _ := NewDevEncryptionService("dev")
		ct, err := svc.Encrypt("")
		if err != nil || ct != "" {
			t.Fatalf("expected empty ciphertext, got %q %v", ct, err)
		}
	})

	t.Run("should reject bad key lengths", func(t *testing.T) {
		if _, err := NewEncryptionService("short"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("should fail to open with another key", func(t *testing.T) {
		a, _ := NewEncryptionService(strings.Repeat("a", 16))
		b, _ := NewEncryptionService(strings.Repeat("b", 16))
		ct, _ := a.Encrypt("secret")
		if _, err := b.Decrypt(ct); err == nil {
			t.Fatal("expected authentication failure")
		}
	})
}

func TestJWTInspector_Expiry(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("backend-only-secret"))
	if err != nil {
		t.Fatal(err)
	}

	insp := JWTInspector{}
	got := insp.Expiry(tok)
	if got == nil || !got.Equal(exp) {
		t.Fatalf("expected %v, got %v", exp, got)
	}
	if insp.Expiry("not-a-jwt") != nil {
		t.Error("expected nil for opaque token")
	}
	if insp.Expiry("") != nil {
		t.Error("expected nil for empty token")
	}
}
