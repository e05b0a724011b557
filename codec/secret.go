package codec

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

const SecretFileName = "secret.key"

// SharedSecretStore provides the symmetric secret shared by every peer.
type SharedSecretStore interface {
	Secret() ([]byte, error)
}

// StaticSecretStore keeps a secret in memory.
type StaticSecretStore struct {
	secret []byte
}

func NewStaticSecretStore(secret []byte) StaticSecretStore {
	return StaticSecretStore{secret: secret}
}

func (s StaticSecretStore) Secret() ([]byte, error) {
	if len(s.secret) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secret must be %d bytes, got %d", chacha20poly1305.KeySize, len(s.secret))
	}
	return s.secret, nil
}

// FileSecretStore loads the secret from <dir>/secret.key, generating and
// persisting it on first use. Losing the file makes previous traffic undecryptable.
type FileSecretStore struct {
	once   sync.Once
	path   string
	secret []byte
	err    error
}

func NewFileSecretStore(dir string) *FileSecretStore {
	return &FileSecretStore{path: filepath.Join(dir, SecretFileName)}
}

func (f *FileSecretStore) Secret() ([]byte, error) {
	f.once.Do(func() {
		f.secret, f.err = f.loadOrCreate()
	})
	return f.secret, f.err
}

func (f *FileSecretStore) loadOrCreate() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	switch {
	case err == nil:
		secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", f.path, err)
		}
		if len(secret) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("%s holds a %d bytes secret, expected %d", f.path, len(secret), chacha20poly1305.KeySize)
		}
		return secret, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create secret directory: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(secret)
	if err := os.WriteFile(f.path, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	return secret, nil
}

var entropy io.Reader = rand.Reader

// GenerateSecret returns a random key sized for the codec.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(entropy, secret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	return secret, nil
}

// NewSecret is like GenerateSecret but panics when no randomness is available.
func NewSecret() []byte {
	secret, err := GenerateSecret()
	if err != nil {
		panic(err)
	}
	return secret
}
