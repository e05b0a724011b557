package e2e

import (
	"context"
	"fmt"
	"lanchat/codec"
	"lanchat/contract"
	"lanchat/domain"
	"lanchat/infrastructure/network"
	"lanchat/infrastructure/storage"
	"lanchat/runtime"
	"lanchat/runtime/workers"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseNodeSuite struct {
	suite.Suite
	Config Config

	// scenario is the test method being run. Peers live until it ends,
	// even when they are started inside a Step.
	scenario *testing.T
	peers    []*Peer
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseNodeSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

func (s *BaseNodeSuite) SetupTest() {
	s.scenario = s.T()
	s.peers = nil
}

// TearDownTest stops every peer started by the scenario, newest first
func (s *BaseNodeSuite) TearDownTest() {
	for i := len(s.peers) - 1; i >= 0; i-- {
		s.peers[i].Shutdown()
	}
	s.peers = nil
}

// Step prints a colorized header and runs one scenario step
func (s *BaseNodeSuite) Step(name string, fn func()) {
	s.Run(name, func() {
		header := fmt.Sprintf("  ====== %s ======", name)
		if s.Config.Colours {
			header = color.New(color.BgBlack, color.FgGreen).Render(header)
		}
		s.T().Log(header)
		fn()
	})
}

// Notices records what a node would print on its console.
type Notices struct {
	mu   sync.Mutex
	seen []string
}

func (n *Notices) Notify(notice contract.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, fmt.Sprintf("%s %s", notice.Kind, notice.Peer))
}

func (n *Notices) Has(kind contract.NoticeKind, peer domain.PeerID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	want := fmt.Sprintf("%s %s", kind, peer)
	for _, s := range n.seen {
		if s == want {
			return true
		}
	}
	return false
}

// Peer is one running node, wired the same way as cmd/node.
type Peer struct {
	*runtime.Node
	Name    string
	Port    int
	DataDir string
	Notices *Notices

	db       *badger.DB
	messages *storage.MessageRepository
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

type PeerOption func(s *runtime.Settings)

func WithDiscovery(listenPort int, target string) PeerOption {
	return func(s *runtime.Settings) {
		s.DiscoveryEnabled = true
		s.DiscoveryPort = listenPort
		s.BroadcastTarget = target
	}
}

func WithLiveness(interval time.Duration) PeerOption {
	return func(s *runtime.Settings) { s.LivenessInterval = interval }
}

// StartPeer boots a node on loopback using dataDir for its secret, keys and database.
func (s *BaseNodeSuite) StartPeer(name, dataDir string, port int, opts ...PeerOption) *Peer {
	log := slog.New(slog.DiscardHandler)
	if s.Config.Verbose {
		log = slog.New(slog.NewTextHandler(testWriter{s.scenario}, &slog.HandlerOptions{Level: slog.LevelDebug})).With("peer", name)
	}

	_, err := codec.LoadOrCreateKeyPair(dataDir)
	s.Require().NoError(err)
	c, err := codec.NewCodec(codec.NewFileSecretStore(dataDir))
	s.Require().NoError(err)

	db, err := badger.Open(badger.DefaultOptions(filepath.Join(dataDir, "db")).WithLogger(nil))
	s.Require().NoError(err)
	messages, err := storage.NewMessageRepository(db, log)
	s.Require().NoError(err)
	directory := runtime.NewPeerDirectory(log, storage.NewPeerRepository(db, log))
	s.Require().NoError(directory.Load())

	settings := runtime.Settings{
		Node:              domain.NodeConfig{DisplayName: name, ListenPort: port},
		TeamTag:           s.Config.TeamTag,
		LocalIP:           "127.0.0.1",
		BroadcastInterval: 100 * time.Millisecond,
		DedupWindow:       10 * time.Second,
		LivenessInterval:  time.Hour,
		ProbeConcurrency:  4,
		DialTimeout:       time.Second,
		MaxFrameSize:      network.DefaultMaxFrameSize,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	notices := &Notices{}
	node := runtime.NewNode(log, settings, workers.NewSupervisor(log, 50*time.Millisecond), c, directory, messages,
		network.NewTCPProber(log, 200*time.Millisecond, 2, 50*time.Millisecond), notices)

	ctx, cancel := context.WithCancel(context.Background())
	p := &Peer{Node: node, Name: name, Port: port, DataDir: dataDir, Notices: notices,
		db: db, messages: messages, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		_ = node.Start(ctx)
	}()
	s.peers = append(s.peers, p)

	select {
	case <-node.Server.Ready():
	case <-time.After(s.Config.Timeout):
		s.Require().FailNow("peer never bound its port", name)
	}
	return p
}

// Shutdown stops the node and releases its database.
func (p *Peer) Shutdown() {
	p.stopOnce.Do(func() {
		p.Stop()
		p.cancel()
		<-p.done
		_ = p.messages.Close()
		_ = p.db.Close()
	})
}

// ShareSecret copies the secret of one data dir to another, as an operator would.
func (s *BaseNodeSuite) ShareSecret(from, to string) {
	_, err := codec.NewFileSecretStore(from).Secret()
	s.Require().NoError(err)
	data, err := os.ReadFile(filepath.Join(from, codec.SecretFileName))
	s.Require().NoError(err)
	s.Require().NoError(os.MkdirAll(to, 0o700))
	s.Require().NoError(os.WriteFile(filepath.Join(to, codec.SecretFileName), data, 0o600))
}

func (s *BaseNodeSuite) FreeTCPPort() int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func (s *BaseNodeSuite) FreeUDPPort() int {
	c, err := net.ListenPacket("udp4", "127.0.0.1:0")
	s.Require().NoError(err)
	defer c.Close()
	return c.LocalAddr().(*net.UDPAddr).Port
}

func Loopback(port int) string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
