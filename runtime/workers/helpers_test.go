package workers

import (
	"lanchat/codec"
	"lanchat/contract"
	"lanchat/domain"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, secret []byte) *codec.Codec {
	t.Helper()
	c, err := codec.NewCodec(codec.NewStaticSecretStore(secret))
	require.NoError(t, err)
	return c
}

// memoryDirectory is a thread-safe directory without persistence.
type memoryDirectory struct {
	mu    sync.Mutex
	peers map[domain.PeerID]domain.PeerRecord
}

func newMemoryDirectory(records ...domain.PeerRecord) *memoryDirectory {
	d := &memoryDirectory{peers: make(map[domain.PeerID]domain.PeerRecord)}
	for _, r := range records {
		d.peers[r.ID] = r
	}
	return d
}

func (d *memoryDirectory) Upsert(id domain.PeerID, ip string, port int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, known := d.peers[id]
	d.peers[id] = domain.PeerRecord{ID: id, IP: ip, Port: port, LastSeen: time.Now()}
	return !known, nil
}

func (d *memoryDirectory) Remove(id domain.PeerID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, known := d.peers[id]
	delete(d.peers, id)
	return known, nil
}

func (d *memoryDirectory) Snapshot() []domain.PeerRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	records := make([]domain.PeerRecord, 0, len(d.peers))
	for _, r := range d.peers {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

func (d *memoryDirectory) get(id domain.PeerID) (domain.PeerRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.peers[id]
	return r, ok
}

// memoryLog is a thread-safe message log without persistence.
type memoryLog struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
}

func (l *memoryLog) Append(message domain.ChatMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, message)
	return nil
}

func (l *memoryLog) ListAll() ([]domain.ChatMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ChatMessage(nil), l.messages...), nil
}

type recordingSink struct {
	notices chan contract.Notice
}

func newRecordingSink() *recordingSink {
	return &recordingSink{notices: make(chan contract.Notice, 64)}
}

func (s *recordingSink) Notify(notice contract.Notice) {
	s.notices <- notice
}

func (s *recordingSink) next(t *testing.T) contract.Notice {
	t.Helper()
	select {
	case notice := <-s.notices:
		return notice
	case <-time.After(3 * time.Second):
		require.FailNow(t, "no notice received")
		return contract.Notice{}
	}
}

func (s *recordingSink) none(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case notice := <-s.notices:
		require.FailNowf(t, "unexpected notice", "%+v", notice)
	case <-time.After(within):
	}
}
