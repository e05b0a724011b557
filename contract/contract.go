//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"lanchat/domain"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// ICodec encrypts and decrypts opaque payloads under the shared secret.
type ICodec interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// IPeerDirectory is shared by discovery, transport and the liveness monitor.
// Implementations must be safe for concurrent use.
type IPeerDirectory interface {
	Upsert(id domain.PeerID, ip string, port int) (bool, error)
	Remove(id domain.PeerID) (bool, error)
	Snapshot() []domain.PeerRecord
}

type IMessageLog interface {
	Append(message domain.ChatMessage) error
	ListAll() ([]domain.ChatMessage, error)
}

// EventSink receives operator notices (peer discovered, message received, peer offline).
type EventSink interface {
	Notify(notice Notice)
}

type NoticeKind string

const (
	PeerDiscovered  NoticeKind = "peer_discovered"
	MessageReceived NoticeKind = "message_received"
	PeerDeparted    NoticeKind = "peer_departed"
	PeerOffline     NoticeKind = "peer_offline"
)

type Notice struct {
	Kind    NoticeKind
	Peer    domain.PeerID
	Name    string
	Message *domain.ChatMessage
}
