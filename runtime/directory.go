package runtime

import (
	"lanchat/domain"
	"lanchat/infrastructure/storage"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// PeerDirectory is the shared "ip:port" -> address table.
// The in-memory map is authoritative; each mutation is written through to the
// repository. A failed write is returned to the caller while the in-memory
// state keeps the mutation.
type PeerDirectory struct {
	mu         sync.RWMutex
	log        *slog.Logger
	peers      map[domain.PeerID]domain.PeerRecord
	repository storage.IPeerRepository
	now        func() time.Time
}

func NewPeerDirectory(log *slog.Logger, repository storage.IPeerRepository) *PeerDirectory {
	return &PeerDirectory{
		log:        log,
		peers:      make(map[domain.PeerID]domain.PeerRecord),
		repository: repository,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Load restores the peers persisted by a previous run.
func (d *PeerDirectory) Load() error {
	records, err := d.repository.LoadAll()
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range records {
		d.peers[r.ID] = r
	}
	return nil
}

// Upsert inserts or refreshes a peer and reports whether it was unknown.
// Repeated upserts of the same peer leave a single entry.
func (d *PeerDirectory) Upsert(id domain.PeerID, ip string, port int) (bool, error) {
	record := domain.PeerRecord{ID: id, IP: ip, Port: port, LastSeen: d.now()}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, known := d.peers[id]
	d.peers[id] = record
	// Persisting under the lock keeps the stored order of writes identical to the in-memory one.
	return !known, d.repository.Save(record)
}

// Remove is a no-op when the peer is unknown.
func (d *PeerDirectory) Remove(id domain.PeerID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, known := d.peers[id]; !known {
		return false, nil
	}
	delete(d.peers, id)
	return true, d.repository.Delete(id)
}

func (d *PeerDirectory) Get(id domain.PeerID) (domain.PeerRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	record, ok := d.peers[id]
	return record, ok
}

// Snapshot returns a copy sorted by peer id, safe to iterate while the
// directory keeps changing.
func (d *PeerDirectory) Snapshot() []domain.PeerRecord {
	d.mu.RLock()
	records := lo.Values(d.peers)
	d.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	return records
}

func (d *PeerDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.peers)
}
