// Package crypto seals configuration secrets (auth key, secret key, DSNs)
// with AES-256-GCM so they can sit in a config file.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Prefix marks a sealed value: "aes-gcm:" + base64(nonce + ciphertext + tag).
const Prefix = "aes-gcm:"

// ErrOpen is returned when a sealed value cannot be authenticated.
var ErrOpen = errors.New("open sealed value: invalid key, wrong field, or corrupted data")

// Box seals and opens values under one key. The field name is bound as
// additional data, so a value sealed for one field does not open as another.
type Box struct {
	aead cipher.AEAD
}

// NewBox derives the AES key from key (see DeriveKey).
func NewBox(key string) (*Box, error) {
	keyBytes, err := DeriveKey(key)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{aead: gcm}, nil
}

// Seal encrypts plaintext for field. Empty plaintext stays empty.
func (b *Box) Seal(field, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), []byte(field))
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal for the same field. Values without
// the prefix are returned unchanged.
func (b *Box) Open(field, value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOpen, err)
	}
	n := b.aead.NonceSize()
	if len(data) < n+b.aead.Overhead() {
		return "", fmt.Errorf("%w: value too short", ErrOpen)
	}
	plaintext, err := b.aead.Open(nil, data[:n], data[n:], []byte(field))
	if err != nil {
		return "", ErrOpen
	}
	return string(plaintext), nil
}

// IsSealed returns true if the value has the "aes-gcm:" prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

// GenerateKey returns a random hex-encoded 32-byte key.
func GenerateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// DeriveKey converts the input string to a 32-byte AES key.
// Accepts: hex-encoded (64 chars), base64-encoded (44 chars), or raw 32 bytes.
func DeriveKey(input string) ([]byte, error) {
	if len(input) == 64 {
		if b, err := hex.DecodeString(input); err == nil {
			return b, nil
		}
	}
	if len(input) == 44 && strings.HasSuffix(input, "=") {
		if b, err := base64.StdEncoding.DecodeString(input); err == nil && len(b) == 32 {
			return b, nil
		}
	}
	if len(input) == 32 {
		return []byte(input), nil
	}
	return nil, errors.New("encryption key must be 32 bytes (hex-encoded 64 chars, base64 44 chars, or raw 32 bytes)")
}
