package network

import (
	"context"
	"fmt"
	"lanchat/contract"
	"lanchat/domain"
	"lanchat/errors"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// Sender opens one short-lived connection per outbound message.
type Sender struct {
	log          *slog.Logger
	codec        contract.ICodec
	directory    contract.IPeerDirectory
	origin       domain.PeerID
	teamTag      string
	dialTimeout  time.Duration
	maxFrameSize int
	dialer       net.Dialer
}

func NewSender(
	log *slog.Logger,
	codec contract.ICodec,
	directory contract.IPeerDirectory,
	origin domain.PeerID,
	teamTag string,
	dialTimeout time.Duration,
	maxFrameSize int,
) *Sender {
	return &Sender{
		log:          log,
		codec:        codec,
		directory:    directory,
		origin:       origin,
		teamTag:      teamTag,
		dialTimeout:  dialTimeout,
		maxFrameSize: maxFrameSize,
		dialer:       net.Dialer{Timeout: dialTimeout},
	}
}

// Send delivers body to ip:port and registers the target in the directory.
// The connection is always closed before returning.
func (s *Sender) Send(ctx context.Context, ip string, port int, body string) error {
	address := net.JoinHostPort(ip, strconv.Itoa(port))
	envelope := domain.Envelope{Origin: s.origin, TeamTag: s.teamTag, Body: body}
	ciphertext, err := s.codec.Encrypt(envelope.Encode())
	if err != nil {
		return fmt.Errorf("failed to encrypt message for %s: %w", address, err)
	}

	conn, err := s.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to %s: %v", errors.ErrTransport, address, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(s.dialTimeout)); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	if err := WriteFrame(conn, ciphertext, s.maxFrameSize); err != nil {
		return fmt.Errorf("%w: failed to write to %s: %v", errors.ErrTransport, address, err)
	}

	id := domain.NewPeerID(ip, port)
	if _, err := s.directory.Upsert(id, ip, port); err != nil {
		s.log.Error("Failed to persist peer", "peer", id, "err", err)
	}
	s.log.Debug("Message sent", "peer", id)
	return nil
}

// Connect registers our presence with a peer that has not announced itself yet.
func (s *Sender) Connect(ctx context.Context, ip string, port int) error {
	return s.Send(ctx, ip, port, domain.ConnectBody)
}
