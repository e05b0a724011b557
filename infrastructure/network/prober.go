//go:generate go run go.uber.org/mock/mockgen -source=prober.go -destination=../../mocks/mock_prober.go -package=mocks
package network

import (
	"context"
	"fmt"
	"lanchat/errors"
	"log/slog"
	"net"
	"time"
)

// Prober decides whether a peer address still accepts connections.
type Prober interface {
	Probe(ctx context.Context, address string) error
}

// TCPProber dials the address without exchanging any data.
// The peer is considered offline once every attempt failed.
type TCPProber struct {
	log      *slog.Logger
	timeout  time.Duration
	attempts int
	backoff  time.Duration
}

func NewTCPProber(log *slog.Logger, timeout time.Duration, attempts int, backoff time.Duration) TCPProber {
	return TCPProber{log: log, timeout: timeout, attempts: max(attempts, 1), backoff: backoff}
}

func (p TCPProber) Probe(ctx context.Context, address string) error {
	dialer := net.Dialer{Timeout: p.timeout}
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err
		p.log.Debug("Probe attempt failed", "address", address, "attempt", attempt, "err", err)

		if attempt == p.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff):
		}
	}
	return fmt.Errorf("%w: %s unreachable after %d attempts: %v", errors.ErrTransport, address, p.attempts, lastErr)
}
