//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package storage

import (
	"encoding/json"
	"fmt"
	"lanchat/domain"
	"lanchat/errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	messagePrefix   = "msg:"
	messageSequence = "seq:msg"
	sequenceLease   = 100
)

type IMessageRepository interface {
	Append(message domain.ChatMessage) error
	ListAll() ([]domain.ChatMessage, error)
}

// MessageRepository is the append-only message log.
type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	sequence *badger.Sequence
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	sequence, err := db.GetSequence([]byte(messageSequence), sequenceLease)
	if err != nil {
		return nil, fmt.Errorf("failed to lease message sequence: %w", err)
	}
	return &MessageRepository{db: db, log: log, sequence: sequence}, nil
}

type diskMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender"`
	TeamTag    string `json:"team_tag"`
	Body       string `json:"body"`
	ReceivedAt int64  `json:"received_at"`
}

// Append persists a message under "msg:{sequence_padded}:{uuid}".
// The badger sequence is monotonic across restarts, so the lexicographical
// order of keys is the insertion order.
func (m *MessageRepository) Append(message domain.ChatMessage) error {
	next, err := m.sequence.Next()
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDurability, err)
	}
	key := fmt.Sprintf("%s%019d:%s", messagePrefix, next, message.ID)
	bytes, err := json.Marshal(fromChatMessage(message))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDurability, err)
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDurability, err)
	}
	return nil
}

// ListAll returns every stored message in insertion order.
func (m *MessageRepository) ListAll() ([]domain.ChatMessage, error) {
	var diskMessages []diskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var dm diskMessage
				if err := json.Unmarshal(value, &dm); err != nil {
					return fmt.Errorf("failed to unmarshal message %s: %w", it.Item().Key(), err)
				}
				diskMessages = append(diskMessages, dm)
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
	return toChatMessages(diskMessages)
}

// Close returns the unused part of the sequence lease.
func (m *MessageRepository) Close() error {
	return m.sequence.Release()
}

func fromChatMessage(message domain.ChatMessage) diskMessage {
	return diskMessage{
		ID:         message.ID.String(),
		SenderID:   string(message.SenderID),
		TeamTag:    message.TeamTag,
		Body:       message.Body,
		ReceivedAt: message.ReceivedAt.UnixNano(),
	}
}

func toChatMessages(diskMessages []diskMessage) ([]domain.ChatMessage, error) {
	messages := make([]domain.ChatMessage, 0, len(diskMessages))
	for _, dm := range diskMessages {
		parsedID, err := uuid.Parse(dm.ID)
		if err != nil {
			return nil, err
		}
		messages = append(messages, domain.ChatMessage{
			ID:         parsedID,
			SenderID:   domain.PeerID(dm.SenderID),
			TeamTag:    dm.TeamTag,
			Body:       dm.Body,
			ReceivedAt: time.Unix(0, dm.ReceivedAt).UTC(),
		})
	}
	return messages, nil
}
