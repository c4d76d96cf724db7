// Package secrets encrypts tenant credentials (calendar API keys, SMTP
// passwords) at rest. Values are sealed with XChaCha20-Poly1305 and encoded
// as base64; Open falls back to returning the input unchanged when it is not
// a valid ciphertext, so plaintext values stored before encryption was
// enabled keep working.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

type Config struct {
	// Base64-encoded 32-byte key. Empty disables encryption: Seal and Open
	// become identity functions.
	Key string `envconfig:"KEY" split_words:"true"`
}

// Box seals and opens credential strings.
type Box struct {
	key []byte
}

func NewBox(cfg Config) (*Box, error) {
	raw := strings.TrimSpace(cfg.Key)
	if raw == "" {
		return &Box{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Box{key: key}, nil
}

// Enabled reports whether a key is configured.
func (b *Box) Enabled() bool {
	return b != nil && len(b.key) > 0
}

// Seal encrypts value. Empty values and disabled boxes pass through.
func (b *Box) Seal(value string) (string, error) {
	if value == "" || !b.Enabled() {
		return value, nil
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("draw nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts value. Anything that does not decrypt cleanly is returned
// as-is, matching the stored-before-encryption fallback.
func (b *Box) Open(value string) string {
	if value == "" || !b.Enabled() {
		return value
	}
	plain, err := b.open(value)
	if err != nil {
		return value
	}
	return plain
}

func (b *Box) open(value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
