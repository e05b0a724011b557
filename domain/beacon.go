package domain

import (
	"fmt"
	"lanchat/errors"
	"strconv"
	"strings"
)

// Beacon is the presence announcement broadcast on the discovery port.
// It is never stored: the receiver pairs it with the datagram source IP.
type Beacon struct {
	DisplayName string
	Port        int
}

func (b Beacon) Encode() []byte {
	return []byte(b.DisplayName + ":" + strconv.Itoa(b.Port))
}

// ParseBeacon accepts exactly "<name>:<port>".
func ParseBeacon(raw []byte) (Beacon, error) {
	fields := strings.Split(string(raw), ":")
	if len(fields) != 2 {
		return Beacon{}, fmt.Errorf("%w: expected 2 fields, got %d", errors.ErrMalformedBeacon, len(fields))
	}
	port, err := ParsePort(fields[1])
	if err != nil {
		return Beacon{}, fmt.Errorf("%w: %v", errors.ErrMalformedBeacon, err)
	}
	return Beacon{DisplayName: fields[0], Port: port}, nil
}

// PeerID derives the directory identity from the datagram source IP.
func (b Beacon) PeerID(sourceIP string) PeerID {
	return NewPeerID(sourceIP, b.Port)
}
