//go:generate go run go.uber.org/mock/mockgen -source=peer_repository.go -destination=../../mocks/mock_peer_repository.go -package=mocks
package storage

import (
	"encoding/json"
	"fmt"
	"lanchat/domain"
	"lanchat/errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const peerPrefix = "peer:"

type IPeerRepository interface {
	Save(record domain.PeerRecord) error
	Delete(id domain.PeerID) error
	LoadAll() ([]domain.PeerRecord, error)
}

// PeerRepository persists the peer directory, one key per peer.
// Every mutation is a single badger transaction, readers never observe a
// partially written directory.
type PeerRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewPeerRepository(db *badger.DB, log *slog.Logger) *PeerRepository {
	return &PeerRepository{db: db, log: log}
}

type diskPeer struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	LastSeen int64  `json:"last_seen"`
}

func (p *PeerRepository) Save(record domain.PeerRecord) error {
	bytes, err := json.Marshal(diskPeer{IP: record.IP, Port: record.Port, LastSeen: record.LastSeen.UnixNano()})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDurability, err)
	}
	err = p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(peerKey(record.ID), bytes)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDurability, err)
	}
	return nil
}

// Delete is a no-op when the peer is unknown.
func (p *PeerRepository) Delete(id domain.PeerID) error {
	err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(peerKey(id))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDurability, err)
	}
	return nil
}

func (p *PeerRepository) LoadAll() ([]domain.PeerRecord, error) {
	records := make(map[domain.PeerID]diskPeer)
	err := p.db.View(func(txn *badger.Txn) error {
		prefix := []byte(peerPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := domain.PeerID(item.Key()[len(prefix):])
			err := item.Value(func(value []byte) error {
				var dp diskPeer
				if err := json.Unmarshal(value, &dp); err != nil {
					return fmt.Errorf("failed to unmarshal peer %s: %w", id, err)
				}
				records[id] = dp
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.MapToSlice(records, func(id domain.PeerID, dp diskPeer) domain.PeerRecord {
		return domain.PeerRecord{ID: id, IP: dp.IP, Port: dp.Port, LastSeen: time.Unix(0, dp.LastSeen).UTC()}
	}), nil
}

func peerKey(id domain.PeerID) []byte {
	return []byte(peerPrefix + string(id))
}
