// Package domain contains core concepts of the chat node.
// This file defines peer records and the "ip:port" identity rules.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"fmt"
	"lanchat/errors"
	"net"
	"strconv"
	"time"
)

// PeerID is the canonical "ip:port" identity of a peer.
type PeerID string

// PeerRecord is one entry of the peer directory.
type PeerRecord struct {
	ID       PeerID
	IP       string
	Port     int
	LastSeen time.Time
}

func (p PeerRecord) Address() string {
	return net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}

func NewPeerID(ip string, port int) PeerID {
	return PeerID(net.JoinHostPort(ip, strconv.Itoa(port)))
}

// ParsePeerID splits an "ip:port" identity into its parts.
// The port must be in the range 1-65535.
func ParsePeerID(id string) (string, int, error) {
	host, rawPort, err := net.SplitHostPort(id)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q: %v", errors.ErrInvalidAddress, id, err)
	}
	port, err := ParsePort(rawPort)
	if err != nil {
		return "", 0, err
	}
	if host == "" {
		return "", 0, fmt.Errorf("%w: %q has no host", errors.ErrInvalidAddress, id)
	}
	return host, port, nil
}

func ParsePort(raw string) (int, error) {
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: port %q", errors.ErrInvalidAddress, raw)
	}
	return port, nil
}
