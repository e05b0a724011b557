package workers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"lanchat/contract"
	"lanchat/domain"
	lanerrors "lanchat/errors"
	"lanchat/infrastructure/network"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Accept failures such as EMFILE are retried with an exponential delay.
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// TransportServerWorker accepts inbound connections and runs one handler per connection.
type TransportServerWorker struct {
	log          *slog.Logger
	codec        contract.ICodec
	directory    contract.IPeerDirectory
	messages     contract.IMessageLog
	sink         contract.EventSink
	port         int
	maxFrameSize int
	now          func() time.Time
	listen       func(network, address string) (net.Listener, error)

	readyOnce sync.Once
	ready     chan struct{}
	addr      net.Addr

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewTransportServerWorker(
	log *slog.Logger,
	codec contract.ICodec,
	directory contract.IPeerDirectory,
	messages contract.IMessageLog,
	sink contract.EventSink,
	port int,
	maxFrameSize int,
) *TransportServerWorker {
	return &TransportServerWorker{
		log:          log,
		codec:        codec,
		directory:    directory,
		messages:     messages,
		sink:         sink,
		port:         port,
		maxFrameSize: maxFrameSize,
		now:          func() time.Time { return time.Now().UTC() },
		listen:       net.Listen,
		ready:        make(chan struct{}),
		conns:        make(map[net.Conn]struct{}),
	}
}

// Ready is closed once the listening port is bound.
func (w *TransportServerWorker) Ready() <-chan struct{} { return w.ready }

func (w *TransportServerWorker) Addr() net.Addr {
	<-w.ready
	return w.addr
}

// Run binds the listening port and serves until ctx is canceled.
// A bind failure is unrecoverable: the node can no longer receive messages,
// outbound operations keep working.
func (w *TransportServerWorker) Run(ctx context.Context) error {
	listener, err := w.listen("tcp", fmt.Sprintf(":%d", w.port))
	if err != nil {
		return fmt.Errorf("%w: %w: failed to listen on port %d: %v",
			lanerrors.ErrUnrecoverable, lanerrors.ErrTransport, w.port, err)
	}
	w.readyOnce.Do(func() {
		w.addr = listener.Addr()
		close(w.ready)
	})
	w.log.Info("Server listening", "address", listener.Addr().String())

	var handlers sync.WaitGroup
	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
		w.interruptHandlers()
	})
	defer stop()

	var delay time.Duration
	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			// In-flight handlers finish the frame they are processing.
			handlers.Wait()
			return nil
		}
		if err != nil {
			delay = min(max(2*delay, minAcceptDelay), maxAcceptDelay)
			w.log.Warn("Accept error", "err", err, "retry_in", delay)
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		handlers.Add(1)
		go func() {
			defer handlers.Done()
			w.handleConn(ctx, conn)
		}()
	}
}

func (w *TransportServerWorker) handleConn(ctx context.Context, conn net.Conn) {
	w.track(ctx, conn)
	defer w.untrack(conn)
	defer conn.Close()

	remoteIP := remoteIPOf(conn)
	for {
		ciphertext, err := network.ReadFrame(conn, w.maxFrameSize)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				w.log.Warn("Connection error", "remote", conn.RemoteAddr().String(), "err", err)
			}
			return
		}
		plaintext, err := w.codec.Decrypt(ciphertext)
		if err != nil {
			// Frame boundaries can no longer be trusted on this connection.
			w.log.Warn("Dropping connection with undecryptable frame", "remote", conn.RemoteAddr().String(), "err", err)
			return
		}
		if closeConn := w.HandleEnvelope(remoteIP, plaintext); closeConn {
			return
		}
	}
}

// HandleEnvelope stores one decrypted frame and reports whether the sender left.
// Malformed frames are logged and skipped.
func (w *TransportServerWorker) HandleEnvelope(remoteIP string, plaintext []byte) bool {
	envelope, err := domain.ParseEnvelope(plaintext)
	if err != nil {
		w.log.Warn("Received malformed message", "remote", remoteIP, "err", err)
		return false
	}
	_, claimedPort, err := domain.ParsePeerID(string(envelope.Origin))
	if err != nil {
		w.log.Warn("Received malformed message", "remote", remoteIP,
			"err", fmt.Errorf("%w: %w", lanerrors.ErrMalformedFrame, err))
		return false
	}

	message := domain.NewChatMessage(envelope.Origin, envelope.TeamTag, envelope.Body, w.now())
	if err := w.messages.Append(message); err != nil {
		w.log.Error("Failed to store message", "sender", envelope.Origin, "err", err)
	}
	w.log.Info("Received message", "sender", envelope.Origin, "team", envelope.TeamTag, "body", envelope.Body)
	w.sink.Notify(contract.Notice{Kind: contract.MessageReceived, Peer: envelope.Origin, Message: &message})

	// The address is the one observed on the socket, the port is the claimed listening port.
	if _, err := w.directory.Upsert(envelope.Origin, remoteIP, claimedPort); err != nil {
		w.log.Error("Failed to persist peer", "peer", envelope.Origin, "err", err)
	}

	if !envelope.IsExit() {
		return false
	}
	w.log.Info("Peer requested disconnection", "peer", envelope.Origin)
	if _, err := w.directory.Remove(envelope.Origin); err != nil {
		w.log.Error("Failed to persist peer removal", "peer", envelope.Origin, "err", err)
	}
	w.sink.Notify(contract.Notice{Kind: contract.PeerDeparted, Peer: envelope.Origin})
	return true
}

func (w *TransportServerWorker) track(ctx context.Context, conn net.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conns[conn] = struct{}{}
	if ctx.Err() != nil {
		_ = conn.SetReadDeadline(time.Now())
	}
}

func (w *TransportServerWorker) untrack(conn net.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.conns, conn)
}

// interruptHandlers unblocks pending reads without closing the sockets,
// each handler closes its own connection.
func (w *TransportServerWorker) interruptHandlers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for conn := range w.conns {
		_ = conn.SetReadDeadline(time.Now())
	}
}

func remoteIPOf(conn net.Conn) string {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return addr.IP.String()
	}
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
