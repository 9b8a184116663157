package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

const sealedPrefix = "enc:"

var ErrKeySize = errors.New("encryption key must be 32 bytes")

// SecretBox seals short secrets such as the SMTP password before they are
// written to the settings collection.
type SecretBox struct {
	aead cipher.AEAD
}

// NewSecretBox returns a box keyed for AES-256-GCM.
func NewSecretBox(key []byte) (*SecretBox, error) {
	if len(key) != 32 {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SecretBox{aead: aead}, nil
}

// Seal returns "enc:" + base64(nonce || ciphertext || tag). Already sealed
// values are returned unchanged.
func (b *SecretBox) Seal(plain string) (string, error) {
	if plain == "" || Sealed(plain) {
		return plain, nil
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := b.aead.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values saved before a key was configured have no
// prefix and pass through as-is.
func (b *SecretBox) Open(stored string) (string, error) {
	if !Sealed(stored) {
		return stored, nil
	}
	raw, err := base64.StdEncoding.DecodeString(stored[len(sealedPrefix):])
	if err != nil {
		return "", err
	}
	n := b.aead.NonceSize()
	if len(raw) < n {
		return "", errors.New("ciphertext too short")
	}
	plain, err := b.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func Sealed(v string) bool {
	return strings.HasPrefix(v, sealedPrefix)
}
