// Package secretbox seals short secret strings (custom header values marked
// secret) with AES-256-GCM for storage at rest.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prefix marks sealed values. Values without it are treated as plaintext.
const Prefix = "enc:v1:"

var (
	ErrNoKey    = errors.New("secretbox: sealed value but no key configured")
	ErrTampered = errors.New("secretbox: integrity check failed")
)

// Box seals and opens values. A nil *Box is valid and stores values as
// given, which is how the service runs without HEADER_ENCRYPTION_KEY.
type Box struct {
	aead cipher.AEAD
}

// New returns a Box for a 32 byte key, or nil when key is empty.
func New(key []byte) (*Box, error) {
	if len(key) == 0 {
		return nil, nil
	}
	if len(key) != 32 {
		return nil, errors.New("secretbox: key must be 32 bytes for AES-256")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: block cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: gcm: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Enabled reports whether values are actually sealed.
func (b *Box) Enabled() bool {
	return b != nil
}

// Seal encrypts plaintext, binding it to aad. The result is
// Prefix + base64url(nonce || ciphertext).
func (b *Box) Seal(plaintext, aad string) (string, error) {
	if b == nil {
		return plaintext, nil
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce: %w", err)
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), []byte(aad))
	return Prefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Values without Prefix are returned unchanged so rows
// written before a key was configured stay readable.
func (b *Box) Open(value, aad string) (string, error) {
	encoded, ok := strings.CutPrefix(value, Prefix)
	if !ok {
		return value, nil
	}
	if b == nil {
		return "", ErrNoKey
	}
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("secretbox: decode: %w", err)
	}
	ns := b.aead.NonceSize()
	if len(data) < ns {
		return "", ErrTampered
	}
	plaintext, err := b.aead.Open(nil, data[:ns], data[ns:], []byte(aad))
	if err != nil {
		return "", ErrTampered
	}
	return string(plaintext), nil
}
