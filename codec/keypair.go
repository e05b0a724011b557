package codec

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	PrivateKeyFileName = "private.pem"
	PublicKeyFileName  = "public.pem"
	rsaKeySize         = 2048
)

// KeyPair is provisioned at startup and persisted next to the shared secret.
// Nothing on the message path consumes it: it is kept for a future per-peer
// authentication scheme.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// LoadOrCreateKeyPair reads private.pem/public.pem from dir, or generates and writes them.
func LoadOrCreateKeyPair(dir string) (KeyPair, error) {
	privatePath := filepath.Join(dir, PrivateKeyFileName)
	publicPath := filepath.Join(dir, PublicKeyFileName)

	if _, err := os.Stat(privatePath); err == nil {
		return loadKeyPair(privatePath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return KeyPair{}, fmt.Errorf("failed to stat private key: %w", err)
	}

	private, err := rsa.GenerateKey(rand.Reader, rsaKeySize)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to generate keys: %w", err)
	}
	kp := KeyPair{Private: private, Public: &private.PublicKey}
	if err := kp.save(privatePath, publicPath); err != nil {
		return KeyPair{}, fmt.Errorf("failed to save keys: %w", err)
	}
	return kp, nil
}

func (kp KeyPair) save(privatePath, publicPath string) error {
	if err := os.MkdirAll(filepath.Dir(privatePath), 0o700); err != nil {
		return err
	}
	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(kp.Private),
	})
	if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
		return err
	}
	publicPEM, err := kp.PublicKeyPEM()
	if err != nil {
		return err
	}
	return os.WriteFile(publicPath, publicPEM, 0o644)
}

// The public key is derived from the private one, public.pem is only an export.
func loadKeyPair(privatePath string) (KeyPair, error) {
	data, err := os.ReadFile(privatePath)
	if err != nil {
		return KeyPair{}, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return KeyPair{}, errors.New("failed to decode private key PEM")
	}
	private, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to parse private key: %w", err)
	}
	return KeyPair{Private: private, Public: &private.PublicKey}, nil
}

func (kp KeyPair) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(kp.Public)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// Fingerprint is the first 8 bytes of the SHA-256 of the DER public key,
// hex encoded, used in logs.
func (kp KeyPair) Fingerprint() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(kp.Public)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:8]), nil
}
