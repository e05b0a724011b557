// Package codec encrypts every payload exchanged between peers with the
// shared secret. Ciphertext layout: 24-byte random nonce followed by the
// XChaCha20-Poly1305 sealed box.
package codec

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"lanchat/errors"

	"golang.org/x/crypto/chacha20poly1305"
)

type Codec struct {
	aead cipher.AEAD
}

func NewCodec(store SharedSecretStore) (*Codec, error) {
	secret, err := store.Secret()
	if err != nil {
		return nil, fmt.Errorf("failed to load shared secret: %w", err)
	}
	aead, err := chacha20poly1305.NewX(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &Codec{aead: aead}, nil
}

func (c *Codec) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt fails with errors.ErrDecryption on anything not sealed with the same secret.
func (c *Codec) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < c.aead.NonceSize()+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: %d bytes is too short", errors.ErrDecryption, len(ciphertext))
	}
	nonce, sealed := ciphertext[:c.aead.NonceSize()], ciphertext[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDecryption, err)
	}
	return plaintext, nil
}
