package workers

import (
	"context"
	"fmt"
	"lanchat/contract"
	"lanchat/domain"
	"log/slog"
	"net"
	"time"
)

// BroadcasterWorker announces this node on the discovery port.
// Broadcasting is best effort: a failed send is logged and retried at the next tick.
type BroadcasterWorker struct {
	log      *slog.Logger
	codec    contract.ICodec
	beacon   domain.Beacon
	target   string
	interval time.Duration
}

func NewBroadcasterWorker(
	log *slog.Logger,
	codec contract.ICodec,
	beacon domain.Beacon,
	target string,
	interval time.Duration,
) *BroadcasterWorker {
	return &BroadcasterWorker{log: log, codec: codec, beacon: beacon, target: target, interval: interval}
}

func (w *BroadcasterWorker) Run(ctx context.Context) error {
	target, err := net.ResolveUDPAddr("udp4", w.target)
	if err != nil {
		return fmt.Errorf("failed to resolve broadcast address %s: %w", w.target, err)
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return fmt.Errorf("failed to open broadcast socket: %w", err)
	}
	defer conn.Close()

	w.log.Info("Broadcasting presence", "target", target.String(), "every", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.announce(conn, target)
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping broadcast")
			return nil
		case <-ticker.C:
		}
	}
}

func (w *BroadcasterWorker) announce(conn *net.UDPConn, target *net.UDPAddr) {
	payload, err := w.codec.Encrypt(w.beacon.Encode())
	if err != nil {
		w.log.Error("Failed to encrypt beacon", "err", err)
		return
	}
	if _, err := conn.WriteToUDP(payload, target); err != nil {
		w.log.Warn("UDP broadcast failed", "target", target.String(), "err", err)
	}
}
