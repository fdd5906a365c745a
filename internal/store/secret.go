package store

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "sb1:"
	nonceSize    = 24
)

var ErrUnsealable = errors.New("sealed value cannot be opened")

// SecretBox encrypts small values at rest with NaCl secretbox. A nil
// *SecretBox stores values as given.
type SecretBox struct {
	key [32]byte
}

// NewSecretBox derives the box key from secret. An empty secret yields nil.
func NewSecretBox(secret string) *SecretBox {
	if secret == "" {
		return nil
	}
	return &SecretBox{key: sha256.Sum256([]byte(secret))}
}

// Seal returns plain encrypted under a fresh nonce, prefixed with the format tag.
func (b *SecretBox) Seal(plain string) (string, error) {
	if b == nil || plain == "" {
		return plain, nil
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plain), &nonce, &b.key)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values without the format tag were saved before
// encryption was enabled and are returned unchanged.
func (b *SecretBox) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if b == nil {
		return "", fmt.Errorf("%w: no secret configured", ErrUnsealable)
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil || len(raw) < nonceSize {
		return "", fmt.Errorf("%w: malformed", ErrUnsealable)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", fmt.Errorf("%w: wrong secret or corrupted", ErrUnsealable)
	}
	return string(plain), nil
}
