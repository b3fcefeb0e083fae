// File: internal/infra/security/encryption_service.go
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"hotspot-portal/internal/domain/ports/adapter"
)

var _ adapter.TokenSealer = (*EncryptionService)(nil)

// EncryptionService seals backend credentials before they are persisted.
// AES-GCM with a fresh nonce per message; output is base64(nonce || ciphertext).
type EncryptionService struct {
	gcm cipher.AEAD
}

// NewEncryptionService accepts a raw 16/24/32 byte key or a base64 encoding
// of one.
func NewEncryptionService(key string) (*EncryptionService, error) {
	k := []byte(key)
	if !validKeyLen(len(k)) {
		if dec, err := base64.StdEncoding.DecodeString(key); err == nil && validKeyLen(len(dec)) {
			k = dec
		} else {
			return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes; got %d", len(k))
		}
	}
	return newService(k)
}

// NewDevEncryptionService derives an AES-256 key from an arbitrary passphrase.
// Only for local runs where no key is configured.
func NewDevEncryptionService(passphrase string) (*EncryptionService, error) {
	sum := sha256.Sum256([]byte("hotspot-portal:" + passphrase))
	return newService(sum[:])
}

func validKeyLen(n int) bool { return n == 16 || n == 24 || n == 32 }

func newService(k []byte) (*EncryptionService, error) {
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &EncryptionService{gcm: gcm}, nil
}

// Encrypt leaves the empty string empty so absent refresh tokens stay absent.
func (e *EncryptionService) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	ct := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ct), nil
}

func (e *EncryptionService) Decrypt(b64 string) (string, error) {
	if b64 == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	ns := e.gcm.NonceSize()
	if len(data) < ns {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ct := data[:ns], data[ns:]
	pt, err := e.gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("gcm open: %w", err)
	}
	return string(pt), nil
}
