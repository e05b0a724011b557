// Package runtime wires the node together: it owns the shared peer directory,
// starts the long-running loops under supervision and exposes the operations
// used by the interactive layer. It contains no wire or storage logic.
package runtime

import (
	"context"
	"fmt"
	"lanchat/contract"
	"lanchat/domain"
	"lanchat/infrastructure/network"
	"lanchat/runtime/workers"
	"log/slog"
	"net"
	"sync"
	"time"
)

type Settings struct {
	Node              domain.NodeConfig
	TeamTag           string
	LocalIP           string
	DiscoveryEnabled  bool
	DiscoveryPort     int
	BroadcastTarget   string
	BroadcastInterval time.Duration
	DedupWindow       time.Duration
	LivenessInterval  time.Duration
	ProbeConcurrency  int
	DialTimeout       time.Duration
	MaxFrameSize      int
}

// Node is simultaneously a listener, a broadcaster and a client.
type Node struct {
	mu         sync.Mutex
	log        *slog.Logger
	settings   Settings
	id         domain.PeerID
	supervisor contract.ISupervisor
	directory  *PeerDirectory
	messages   contract.IMessageLog
	sender     *network.Sender

	Server    *workers.TransportServerWorker
	Discovery *workers.DiscoveryListenerWorker
	workers   []contract.Worker

	started bool
	stopped chan struct{}
	stop    sync.Once
}

func NewNode(
	log *slog.Logger,
	settings Settings,
	supervisor contract.ISupervisor,
	codec contract.ICodec,
	directory *PeerDirectory,
	messages contract.IMessageLog,
	prober network.Prober,
	sink contract.EventSink,
) *Node {
	id := domain.NewPeerID(settings.LocalIP, settings.Node.ListenPort)
	n := &Node{
		log:        log.With("node", string(id)),
		settings:   settings,
		id:         id,
		supervisor: supervisor,
		directory:  directory,
		messages:   messages,
		stopped:    make(chan struct{}),
	}
	n.sender = network.NewSender(n.log, codec, directory, id, settings.TeamTag,
		settings.DialTimeout, settings.MaxFrameSize)

	n.Server = workers.NewTransportServerWorker(n.log, codec, directory, messages, sink,
		settings.Node.ListenPort, settings.MaxFrameSize)
	n.workers = append(n.workers,
		n.Server,
		workers.NewLivenessWorker(n.log, directory, prober, sink,
			settings.LivenessInterval, settings.ProbeConcurrency),
	)

	if settings.DiscoveryEnabled {
		beacon := domain.Beacon{DisplayName: settings.Node.DisplayName, Port: settings.Node.ListenPort}
		n.Discovery = workers.NewDiscoveryListenerWorker(n.log, codec, directory, sink,
			settings.DiscoveryPort, settings.DedupWindow, n.isSelf)
		n.workers = append(n.workers,
			n.Discovery,
			workers.NewBroadcasterWorker(n.log, codec, beacon, settings.BroadcastTarget, settings.BroadcastInterval),
		)
	}
	return n
}

func (n *Node) ID() domain.PeerID { return n.id }

// Start runs every loop under the supervisor and blocks until ctx is canceled
// or Stop is called. Loops finish their in-flight work before Start returns.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return fmt.Errorf("node %s already started", n.id)
	}
	n.started = true
	n.supervisor.Add(n.workers...)
	n.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-n.stopped:
			cancel()
		case <-ctx.Done():
		}
	}()

	n.log.Info("Starting node", "name", n.settings.Node.DisplayName, "workers", len(n.workers))
	n.supervisor.Run(ctx)
	n.log.Info("Node stopped")
	return nil
}

// Stop asks every loop to finish. It is safe to call several times.
func (n *Node) Stop() {
	n.stop.Do(func() {
		close(n.stopped)
		n.supervisor.Stop()
	})
}

// SendMessage delivers body to ip:port over a new connection.
func (n *Node) SendMessage(ctx context.Context, ip string, port int, body string) error {
	return n.sender.Send(ctx, ip, port, body)
}

// Connect registers this node with a peer that has not announced itself.
func (n *Node) Connect(ctx context.Context, ip string, port int) error {
	return n.sender.Connect(ctx, ip, port)
}

func (n *Node) Peers() []domain.PeerRecord {
	return n.directory.Snapshot()
}

func (n *Node) Messages() ([]domain.ChatMessage, error) {
	return n.messages.ListAll()
}

// isSelf filters our own beacons, which come back through the broadcast address.
func (n *Node) isSelf(id domain.PeerID) bool {
	ip, port, err := domain.ParsePeerID(string(id))
	if err != nil || port != n.settings.Node.ListenPort {
		return false
	}
	parsed := net.ParseIP(ip)
	return ip == n.settings.LocalIP || (parsed != nil && parsed.IsLoopback())
}
