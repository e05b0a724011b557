package e2e

import (
	"context"
	"lanchat/contract"
	"lanchat/domain"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type testChatSuite struct {
	BaseNodeSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func (s *testChatSuite) eventually(condition func() bool, msg string) {
	s.Require().Eventually(condition, s.Config.Timeout, 20*time.Millisecond, msg)
}

func (s *testChatSuite) knows(p *Peer, id domain.PeerID) bool {
	for _, record := range p.Peers() {
		if record.ID == id {
			return true
		}
	}
	return false
}

func (s *testChatSuite) history(p *Peer) []domain.ChatMessage {
	messages, err := p.Messages()
	s.Require().NoError(err)
	return messages
}

func (s *testChatSuite) TestHelloAndExit() {
	root := s.T().TempDir()
	aliceDir, bobDir := filepath.Join(root, "alice"), filepath.Join(root, "bob")
	s.ShareSecret(aliceDir, bobDir)
	alice := s.StartPeer("alice", aliceDir, s.FreeTCPPort())
	bob := s.StartPeer("bob", bobDir, s.FreeTCPPort())
	ctx := context.Background()

	s.Step("Step 1: alice connects to bob", func() {
		s.Require().NoError(alice.Connect(ctx, "127.0.0.1", bob.Port))
		s.Require().True(s.knows(alice, bob.ID()))
		s.eventually(func() bool { return s.knows(bob, alice.ID()) }, "bob should register alice")
	})

	s.Step("Step 2: alice says hello", func() {
		s.Require().NoError(alice.SendMessage(ctx, "127.0.0.1", bob.Port, "hello bob"))
		s.eventually(func() bool { return len(s.history(bob)) == 2 }, "bob should store the message")
		last := s.history(bob)[1]
		s.Equal(alice.ID(), last.SenderID)
		s.Equal(s.Config.TeamTag, last.TeamTag)
		s.Equal("hello bob", last.Body)
		s.Empty(s.history(alice))
	})

	s.Step("Step 3: alice leaves", func() {
		s.Require().NoError(alice.SendMessage(ctx, "127.0.0.1", bob.Port, "exit"))
		s.eventually(func() bool { return !s.knows(bob, alice.ID()) }, "bob should forget alice")
		s.True(bob.Notices.Has(contract.PeerDeparted, alice.ID()))
	})
}

func (s *testChatSuite) TestDiscovery() {
	root := s.T().TempDir()
	aliceDir, bobDir := filepath.Join(root, "alice"), filepath.Join(root, "bob")
	s.ShareSecret(aliceDir, bobDir)
	aliceUDP, bobUDP := s.FreeUDPPort(), s.FreeUDPPort()

	alice := s.StartPeer("alice", aliceDir, s.FreeTCPPort(), WithDiscovery(aliceUDP, Loopback(bobUDP)))
	bob := s.StartPeer("bob", bobDir, s.FreeTCPPort(), WithDiscovery(bobUDP, Loopback(aliceUDP)))

	s.Step("Both nodes find each other without any connect", func() {
		s.eventually(func() bool {
			return s.knows(alice, bob.ID()) && s.knows(bob, alice.ID())
		}, "nodes should discover each other")
		s.True(alice.Notices.Has(contract.PeerDiscovered, bob.ID()))
		s.True(bob.Notices.Has(contract.PeerDiscovered, alice.ID()))
	})

	s.Step("A discovered peer can be messaged", func() {
		s.Require().NoError(alice.SendMessage(context.Background(), "127.0.0.1", bob.Port, "found you"))
		s.eventually(func() bool { return len(s.history(bob)) == 1 }, "bob should store the message")
	})
}

func (s *testChatSuite) TestRestartKeepsHistoryAndPeers() {
	root := s.T().TempDir()
	aliceDir, bobDir := filepath.Join(root, "alice"), filepath.Join(root, "bob")
	s.ShareSecret(aliceDir, bobDir)
	alice := s.StartPeer("alice", aliceDir, s.FreeTCPPort())
	bobPort := s.FreeTCPPort()
	bob := s.StartPeer("bob", bobDir, bobPort)
	ctx := context.Background()

	s.Step("Step 1: bob receives two messages", func() {
		s.Require().NoError(alice.SendMessage(ctx, "127.0.0.1", bob.Port, "first"))
		s.Require().NoError(alice.SendMessage(ctx, "127.0.0.1", bob.Port, "second"))
		s.eventually(func() bool { return len(s.history(bob)) == 2 }, "bob should store both messages")
	})

	s.Step("Step 2: bob restarts on the same data directory", func() {
		bob.Shutdown()
		bob = s.StartPeer("bob", bobDir, bobPort)
		history := s.history(bob)
		s.Require().Len(history, 2)
		s.Equal("first", history[0].Body)
		s.Equal("second", history[1].Body)
		s.True(s.knows(bob, alice.ID()))
	})

	s.Step("Step 3: the persisted secret still decrypts new traffic", func() {
		s.Require().NoError(alice.SendMessage(ctx, "127.0.0.1", bob.Port, "third"))
		s.eventually(func() bool { return len(s.history(bob)) == 3 }, "bob should store the new message")
		s.Equal("third", s.history(bob)[2].Body)
	})
}

func (s *testChatSuite) TestForeignSecretIsRejected() {
	root := s.T().TempDir()
	bob := s.StartPeer("bob", filepath.Join(root, "bob"), s.FreeTCPPort())
	mallory := s.StartPeer("mallory", filepath.Join(root, "mallory"), s.FreeTCPPort())

	s.Step("Traffic under another secret is dropped", func() {
		s.Require().NoError(mallory.SendMessage(context.Background(), "127.0.0.1", bob.Port, "let me in"))
		time.Sleep(200 * time.Millisecond)
		s.Empty(s.history(bob))
		s.False(s.knows(bob, mallory.ID()))
	})
}

func (s *testChatSuite) TestOfflinePeerIsEvicted() {
	root := s.T().TempDir()
	aliceDir, bobDir := filepath.Join(root, "alice"), filepath.Join(root, "bob")
	s.ShareSecret(aliceDir, bobDir)
	alice := s.StartPeer("alice", aliceDir, s.FreeTCPPort(), WithLiveness(100*time.Millisecond))
	bob := s.StartPeer("bob", bobDir, s.FreeTCPPort())

	s.Step("Bob disappears and alice notices", func() {
		s.Require().NoError(alice.Connect(context.Background(), "127.0.0.1", bob.Port))
		bob.Shutdown()
		s.eventually(func() bool { return !s.knows(alice, bob.ID()) }, "alice should evict bob")
		s.True(alice.Notices.Has(contract.PeerOffline, bob.ID()))
	})
}
