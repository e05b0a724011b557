package workers

import (
	"context"
	"lanchat/codec"
	"lanchat/contract"
	"lanchat/domain"
	"lanchat/mocks"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func beaconFrom(t *testing.T, c *codec.Codec, name string, port int) []byte {
	t.Helper()
	payload, err := c.Encrypt(domain.Beacon{DisplayName: name, Port: port}.Encode())
	require.NoError(t, err)
	return payload
}

func TestDiscoveryListener_New_Peer_Is_Registered_And_Announced(t *testing.T) {
	ctrl := gomock.NewController(t)
	directory := mocks.NewMockIPeerDirectory(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	c := newTestCodec(t, codec.NewSecret())

	// Given a first beacon then a repeated one
	gomock.InOrder(
		directory.EXPECT().Upsert(domain.PeerID("10.0.0.2:5000"), "10.0.0.2", 5000).Return(true, nil),
		directory.EXPECT().Upsert(domain.PeerID("10.0.0.2:5000"), "10.0.0.2", 5000).Return(false, nil),
	)
	// Then a single notice is raised
	sink.EXPECT().Notify(contract.Notice{Kind: contract.PeerDiscovered, Peer: "10.0.0.2:5000", Name: "bob"}).Times(1)

	listener := NewDiscoveryListenerWorker(slog.New(slog.DiscardHandler), c, directory, sink, 0, 10*time.Second, nil)
	listener.HandleDatagram(beaconFrom(t, c, "bob", 5000), "10.0.0.2")
	listener.HandleDatagram(beaconFrom(t, c, "bob", 5000), "10.0.0.2")
}

func TestDiscoveryListener_Dedup_Window(t *testing.T) {
	req := require.New(t)
	c := newTestCodec(t, codec.NewSecret())
	directory := newMemoryDirectory()
	sink := newRecordingSink()
	listener := NewDiscoveryListenerWorker(slog.New(slog.DiscardHandler), c, directory, sink, 0, 200*time.Millisecond, nil)

	listener.HandleDatagram(beaconFrom(t, c, "bob", 5000), "10.0.0.2")
	req.Equal(contract.PeerDiscovered, sink.next(t).Kind)

	// When the peer is evicted and beacons again within the window
	_, _ = directory.Remove("10.0.0.2:5000")
	listener.HandleDatagram(beaconFrom(t, c, "bob", 5000), "10.0.0.2")

	// Then it is registered again without a second announcement
	_, ok := directory.get("10.0.0.2:5000")
	req.True(ok)
	sink.none(t, 50*time.Millisecond)

	// When the window expired without any beacon
	time.Sleep(300 * time.Millisecond)
	_, _ = directory.Remove("10.0.0.2:5000")
	listener.HandleDatagram(beaconFrom(t, c, "bob", 5000), "10.0.0.2")

	// Then it is announced again
	notice := sink.next(t)
	req.Equal(domain.PeerID("10.0.0.2:5000"), notice.Peer)
}

func TestDiscoveryListener_Drops_Invalid_Datagrams(t *testing.T) {
	ctrl := gomock.NewController(t)
	// No call expected on either mock
	directory := mocks.NewMockIPeerDirectory(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	c := newTestCodec(t, codec.NewSecret())
	foreign := newTestCodec(t, codec.NewSecret())

	listener := NewDiscoveryListenerWorker(slog.New(slog.DiscardHandler), c, directory, sink, 0, 10*time.Second, nil)

	// Foreign secret
	listener.HandleDatagram(beaconFrom(t, foreign, "eve", 5000), "10.0.0.66")
	// Plaintext
	listener.HandleDatagram([]byte("eve:5000"), "10.0.0.66")
	// Malformed once decrypted
	for _, raw := range []string{"eve", "eve:port", "eve:5000:extra", "eve:0"} {
		payload, err := c.Encrypt([]byte(raw))
		require.NoError(t, err)
		listener.HandleDatagram(payload, "10.0.0.66")
	}
}

func TestDiscoveryListener_Ignores_Own_Beacon(t *testing.T) {
	ctrl := gomock.NewController(t)
	directory := mocks.NewMockIPeerDirectory(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	c := newTestCodec(t, codec.NewSecret())
	isSelf := func(id domain.PeerID) bool { return id == "10.0.0.1:5000" }

	listener := NewDiscoveryListenerWorker(slog.New(slog.DiscardHandler), c, directory, sink, 0, 10*time.Second, isSelf)
	listener.HandleDatagram(beaconFrom(t, c, "me", 5000), "10.0.0.1")
}

func TestDiscovery_Broadcaster_Reaches_Listener(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newTestCodec(t, codec.NewSecret())
	directory := newMemoryDirectory()
	sink := newRecordingSink()
	log := slog.New(slog.DiscardHandler)

	listener := NewDiscoveryListenerWorker(log, c, directory, sink, 0, 10*time.Second, nil)
	go func() { _ = listener.Run(ctx) }()
	<-listener.Ready()
	port := listener.Addr().(*net.UDPAddr).Port

	target := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	broadcaster := NewBroadcasterWorker(log, c, domain.Beacon{DisplayName: "bob", Port: 6000}, target, 50*time.Millisecond)
	go func() { _ = broadcaster.Run(ctx) }()

	notice := sink.next(t)
	req.Equal(contract.Notice{Kind: contract.PeerDiscovered, Peer: "127.0.0.1:6000", Name: "bob"}, notice)

	// Then following beacons only refresh the entry
	sink.none(t, 200*time.Millisecond)
	record, ok := directory.get("127.0.0.1:6000")
	req.True(ok)
	req.Equal(6000, record.Port)
}

func TestDiscoveryListener_Stops_On_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	listener := NewDiscoveryListenerWorker(slog.New(slog.DiscardHandler), newTestCodec(t, codec.NewSecret()), newMemoryDirectory(), newRecordingSink(), 0, time.Second, nil)

	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()
	<-listener.Ready()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		require.Fail(t, "listener did not stop")
	}
}
