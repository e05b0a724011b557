package codec

import (
	"bytes"
	"lanchat/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T, secret []byte) *Codec {
	c, err := NewCodec(NewStaticSecretStore(secret))
	require.NoError(t, err)
	return c
}

func TestCodec_RoundTrip(t *testing.T) {
	req := require.New(t)
	c := newCodec(t, NewSecret())

	plaintexts := [][]byte{
		[]byte("alice:6000"),
		[]byte("10.0.0.1:6000 CryptoCrafters hello world"),
		{},
		bytes.Repeat([]byte{0xff}, 4096),
	}
	for _, p := range plaintexts {
		ciphertext, err := c.Encrypt(p)
		req.NoError(err)
		req.NotEqual(p, ciphertext)

		decrypted, err := c.Decrypt(ciphertext)
		req.NoError(err)
		req.Equal(len(p), len(decrypted))
		req.True(bytes.Equal(p, decrypted))
	}
}

func TestCodec_Encrypt_Uses_Fresh_Nonce(t *testing.T) {
	req := require.New(t)
	c := newCodec(t, NewSecret())

	first, err := c.Encrypt([]byte("same"))
	req.NoError(err)
	second, err := c.Encrypt([]byte("same"))
	req.NoError(err)
	req.NotEqual(first, second)
}

func TestCodec_Decrypt_Foreign_Secret_Fails(t *testing.T) {
	req := require.New(t)
	alice := newCodec(t, NewSecret())
	mallory := newCodec(t, NewSecret())

	ciphertext, err := mallory.Encrypt([]byte("eve:6000"))
	req.NoError(err)

	plaintext, err := alice.Decrypt(ciphertext)
	req.ErrorIs(err, errors.ErrDecryption)
	req.Nil(plaintext)
}

func TestCodec_Decrypt_Corrupted_Or_Garbage_Fails(t *testing.T) {
	req := require.New(t)
	c := newCodec(t, NewSecret())

	ciphertext, err := c.Encrypt([]byte("hello"))
	req.NoError(err)
	ciphertext[len(ciphertext)-1] ^= 0x01

	_, err = c.Decrypt(ciphertext)
	req.ErrorIs(err, errors.ErrDecryption)

	_, err = c.Decrypt([]byte("short"))
	req.ErrorIs(err, errors.ErrDecryption)

	_, err = c.Decrypt(nil)
	req.ErrorIs(err, errors.ErrDecryption)
}

func TestNewCodec_Rejects_Wrong_Secret_Size(t *testing.T) {
	_, err := NewCodec(NewStaticSecretStore([]byte("too short")))
	require.Error(t, err)
}
