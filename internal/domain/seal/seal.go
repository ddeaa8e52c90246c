// Package seal encrypts gold prompts so clients can carry the target text
// without being able to read it.
//
// Tokens have the shape iv.tag.ciphertext where each part is unpadded
// base64url. The cipher is AES-256-GCM with a 12 byte nonce.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize   = 32
	nonceSize = 12
	tagSize   = 16
	keyInfo   = "promptmatch gold prompt v1"
)

var enc = base64.RawURLEncoding

// Sealer seals and opens gold prompt tokens with a key derived from a secret.
type Sealer struct {
	aead cipher.AEAD
	rand io.Reader
}

// New derives an AES-256 key from secret and returns a ready Sealer.
func New(secret string) (*Sealer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecret
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Sealer{aead: aead, rand: rand.Reader}, nil
}

// Seal encrypts plain and returns the token.
func (s *Sealer) Seal(plain string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	out := s.aead.Seal(nil, nonce, []byte(plain), nil)
	ct, tag := out[:len(out)-tagSize], out[len(out)-tagSize:]
	return enc.EncodeToString(nonce) + "." + enc.EncodeToString(tag) + "." + enc.EncodeToString(ct), nil
}

// Open reverses Seal. Any malformed or tampered token yields ErrInvalidToken.
func (s *Sealer) Open(token string) (string, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}
	nonce, err := enc.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", ErrInvalidToken
	}
	tag, err := enc.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return "", ErrInvalidToken
	}
	ct, err := enc.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidToken
	}
	plain, err := s.aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", ErrInvalidToken
	}
	return string(plain), nil
}
