package workers

import (
	"context"
	"errors"
	"fmt"
	"lanchat/contract"
	"lanchat/domain"
	lanerrors "lanchat/errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	datagramBufferSize = 2048
	udpReadDeadline    = time.Second
	dedupCacheSize     = 1024
)

// DiscoveryListenerWorker registers the peers whose beacons decrypt with our secret.
// Every beacon refreshes the directory, but a peer is only announced to the
// operator when it is new and was not already announced within the dedup window.
type DiscoveryListenerWorker struct {
	log       *slog.Logger
	codec     contract.ICodec
	directory contract.IPeerDirectory
	sink      contract.EventSink
	port      int
	isSelf    func(domain.PeerID) bool
	recent    *expirable.LRU[domain.PeerID, struct{}]

	readyOnce sync.Once
	ready     chan struct{}
	addr      net.Addr
}

func NewDiscoveryListenerWorker(
	log *slog.Logger,
	codec contract.ICodec,
	directory contract.IPeerDirectory,
	sink contract.EventSink,
	port int,
	dedupWindow time.Duration,
	isSelf func(domain.PeerID) bool,
) *DiscoveryListenerWorker {
	return &DiscoveryListenerWorker{
		log:       log,
		codec:     codec,
		directory: directory,
		sink:      sink,
		port:      port,
		isSelf:    isSelf,
		recent:    expirable.NewLRU[domain.PeerID, struct{}](dedupCacheSize, nil, dedupWindow),
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the discovery port is bound.
func (w *DiscoveryListenerWorker) Ready() <-chan struct{} { return w.ready }

func (w *DiscoveryListenerWorker) Addr() net.Addr {
	<-w.ready
	return w.addr
}

func (w *DiscoveryListenerWorker) Run(ctx context.Context) error {
	conn, err := listenReusableUDP(ctx, w.port)
	if err != nil {
		// Without the discovery port the node still works through manual connects.
		return fmt.Errorf("%w: failed to bind discovery port %d: %v", lanerrors.ErrUnrecoverable, w.port, err)
	}
	defer conn.Close()

	w.readyOnce.Do(func() {
		w.addr = conn.LocalAddr()
		close(w.ready)
	})
	w.log.Info("Listening for beacons", "address", conn.LocalAddr().String())

	var netErr net.Error
	buf := make([]byte, datagramBufferSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(udpReadDeadline)); err != nil {
			w.log.Error("Failed to set read deadline", "err", err)
			continue
		}
		n, source, err := conn.ReadFromUDP(buf)
		switch {
		case errors.As(err, &netErr) && netErr.Timeout():
			continue
		case err != nil:
			w.log.Error("Failed to read UDP datagram", "err", err)
			continue
		}
		w.HandleDatagram(buf[:n], source.IP.String())
	}
}

// HandleDatagram processes one beacon. Undecryptable or malformed datagrams are dropped.
func (w *DiscoveryListenerWorker) HandleDatagram(payload []byte, sourceIP string) {
	plaintext, err := w.codec.Decrypt(payload)
	if err != nil {
		w.log.Debug("Dropping foreign datagram", "source", sourceIP, "err", err)
		return
	}
	beacon, err := domain.ParseBeacon(plaintext)
	if err != nil {
		w.log.Debug("Dropping malformed beacon", "source", sourceIP, "err", err)
		return
	}

	id := beacon.PeerID(sourceIP)
	if w.isSelf != nil && w.isSelf(id) {
		return
	}

	created, err := w.directory.Upsert(id, sourceIP, beacon.Port)
	if err != nil {
		w.log.Error("Failed to persist discovered peer", "peer", id, "err", err)
	}

	_, seenRecently := w.recent.Get(id)
	w.recent.Add(id, struct{}{})
	if created && !seenRecently {
		w.log.Info("Discovered peer", "name", beacon.DisplayName, "peer", id)
		w.sink.Notify(contract.Notice{Kind: contract.PeerDiscovered, Peer: id, Name: beacon.DisplayName})
	}
}
