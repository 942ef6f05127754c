package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var ErrUnsealed = errors.New("value is not sealed with the configured key")

// Cipher seals credentials with one process-wide key loaded from configuration.
type Cipher struct {
	key [32]byte
}

func NewCipher(key *[32]byte) (*Cipher, error) {
	if key == nil {
		return nil, errors.New("cipher key is required")
	}
	var zero [32]byte
	if subtle.ConstantTimeCompare(key[:], zero[:]) == 1 {
		return nil, errors.New("cipher key must not be all zeros")
	}
	return &Cipher{key: *key}, nil
}

// Seal returns base64(nonce || box).
func (c *Cipher) Seal(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plain), &nonce, &c.key)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (c *Cipher) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrUnsealed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrUnsealed
	}
	return string(plain), nil
}

// Matches opens sealed and compares it with candidate in constant time.
func (c *Cipher) Matches(sealed, candidate string) bool {
	plain, err := c.Open(sealed)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(plain), []byte(candidate)) == 1
}
