package domain

import (
	"fmt"
	"lanchat/errors"
	"strings"
)

const (
	ConnectBody = "Connection established"
	exitBody    = "exit"
)

// Envelope is the plaintext carried by one transport frame:
// "<origin_id> <team_tag> <body>", where body may contain spaces.
type Envelope struct {
	Origin  PeerID
	TeamTag string
	Body    string
}

func (e Envelope) Encode() []byte {
	return []byte(fmt.Sprintf("%s %s %s", e.Origin, e.TeamTag, e.Body))
}

func ParseEnvelope(raw []byte) (Envelope, error) {
	fields := strings.SplitN(string(raw), " ", 3)
	if len(fields) < 3 {
		return Envelope{}, fmt.Errorf("%w: expected 3 fields, got %d", errors.ErrMalformedFrame, len(fields))
	}
	return Envelope{Origin: PeerID(fields[0]), TeamTag: fields[1], Body: fields[2]}, nil
}

// IsExit reports whether the sender announced its departure.
func (e Envelope) IsExit() bool {
	return strings.EqualFold(strings.TrimSpace(e.Body), exitBody)
}
