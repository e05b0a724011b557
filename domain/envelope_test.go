package domain

import (
	lanerrors "lanchat/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelope_Body_Keeps_Spaces(t *testing.T) {
	req := require.New(t)
	envelope := Envelope{Origin: "10.0.0.1:5000", TeamTag: "CryptoCrafters", Body: "hello  there friend"}
	req.Equal("10.0.0.1:5000 CryptoCrafters hello  there friend", string(envelope.Encode()))

	parsed, err := ParseEnvelope(envelope.Encode())
	req.NoError(err)
	req.Equal(envelope, parsed)
}

func TestParseEnvelope_Needs_Three_Fields(t *testing.T) {
	for _, raw := range []string{"", "hello", "10.0.0.1:5000 CryptoCrafters"} {
		_, err := ParseEnvelope([]byte(raw))
		require.ErrorIs(t, err, lanerrors.ErrMalformedFrame)
	}
}

func TestParseEnvelope_Allows_Empty_Body(t *testing.T) {
	envelope, err := ParseEnvelope([]byte("10.0.0.1:5000 CryptoCrafters "))
	require.NoError(t, err)
	require.Equal(t, "", envelope.Body)
}

func TestEnvelope_IsExit(t *testing.T) {
	req := require.New(t)
	req.True(Envelope{Body: "exit"}.IsExit())
	req.True(Envelope{Body: " EXIT\n"}.IsExit())
	req.False(Envelope{Body: "exit now"}.IsExit())
	req.False(Envelope{Body: ConnectBody}.IsExit())
}
