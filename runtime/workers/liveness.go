package workers

import (
	"context"
	"lanchat/contract"
	"lanchat/domain"
	"lanchat/infrastructure/network"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// LivenessWorker periodically probes every known peer and evicts the unreachable ones.
// It never adds peers: only discovery and transport do.
type LivenessWorker struct {
	log         *slog.Logger
	directory   contract.IPeerDirectory
	prober      network.Prober
	sink        contract.EventSink
	interval    time.Duration
	concurrency int
}

func NewLivenessWorker(
	log *slog.Logger,
	directory contract.IPeerDirectory,
	prober network.Prober,
	sink contract.EventSink,
	interval time.Duration,
	concurrency int,
) *LivenessWorker {
	return &LivenessWorker{
		log:         log,
		directory:   directory,
		prober:      prober,
		sink:        sink,
		interval:    interval,
		concurrency: max(concurrency, 1),
	}
}

func (w *LivenessWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping liveness checks")
			return nil
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep probes a snapshot of the directory, at most `concurrency` peers at a time,
// and waits for every probe to finish.
func (w *LivenessWorker) Sweep(ctx context.Context) {
	var group errgroup.Group
	group.SetLimit(w.concurrency)

	for _, peer := range w.directory.Snapshot() {
		group.Go(func() error {
			w.check(ctx, peer)
			return nil
		})
	}
	_ = group.Wait()
}

func (w *LivenessWorker) check(ctx context.Context, peer domain.PeerRecord) {
	err := w.prober.Probe(ctx, peer.Address())
	if err == nil || ctx.Err() != nil {
		return
	}
	removed, err := w.directory.Remove(peer.ID)
	if err != nil {
		w.log.Error("Failed to persist peer removal", "peer", peer.ID, "err", err)
	}
	if !removed {
		return
	}
	w.log.Info("Peer appears offline, removing from list", "peer", peer.ID)
	w.sink.Notify(contract.Notice{Kind: contract.PeerOffline, Peer: peer.ID})
}
