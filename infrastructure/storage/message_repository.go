//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"courier/domain"
)

// seqBandwidth is the lease size for the badger sequence backing message IDs.
// Crash recovery may skip up to this many IDs; gaps are fine, regressions are not.
const seqBandwidth = 128

type IMessageRepository interface {
	Append(senderID, recipientID, content, lang string) (DiskMessage, error)
	Conversation(userA, userB string) ([]DiskMessage, error)
	Recent(limit int) ([]DiskMessage, error)
	Close() error
}

// DiskMessage is the repository-level representation of a stored message.
type DiskMessage struct {
	ID          uint64    `cbor:"1,keyasint"`
	SenderID    string    `cbor:"2,keyasint"`
	RecipientID string    `cbor:"3,keyasint"`
	Content     string    `cbor:"4,keyasint"`
	Lang        string    `cbor:"5,keyasint,omitempty"`
	At          time.Time `cbor:"6,keyasint"`
}

type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:msg"), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log}, nil
}

// Append assigns the next monotonic ID and the persistence timestamp, then
// writes the record under two keys in one transaction:
//
//	msg:{low}:{high}:{timestamp_padded}:{id_padded}   conversation scan
//	feed:{timestamp_padded}:{id_padded}               global recent feed
//
// The 19-digit zero padding makes lexicographic key order equal chronological
// order; the ID suffix disambiguates two messages stored in the same nanosecond.
func (m *MessageRepository) Append(senderID, recipientID, content, lang string) (DiskMessage, error) {
	id, err := m.seq.Next()
	if err != nil {
		return DiskMessage{}, fmt.Errorf("next message id: %w", err)
	}

	record := DiskMessage{
		ID:          id,
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Lang:        lang,
		At:          time.Now().UTC(),
	}

	value, err := cbor.Marshal(record)
	if err != nil {
		return DiskMessage{}, err
	}

	key := convKey(senderID, recipientID, record.At, record.ID)
	feedKey := fmt.Sprintf("feed:%019d:%019d", record.At.UnixNano(), record.ID)

	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), value); err != nil {
			return err
		}
		return txn.Set([]byte(feedKey), value)
	})
	if err != nil {
		return DiskMessage{}, err
	}
	return record, nil
}

// Conversation returns every message exchanged between the two users, in
// either direction, ascending by timestamp then ID. The key layout does the
// sorting: a forward prefix scan is already chronological.
func (m *MessageRepository) Conversation(userA, userB string) ([]DiskMessage, error) {
	conv := domain.NewConversationKey(userA, userB)
	prefix := []byte(fmt.Sprintf("msg:%s:", conv.String()))

	var messages []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var record DiskMessage
				if err := cbor.Unmarshal(value, &record); err != nil {
					return err
				}
				messages = append(messages, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// Recent returns the latest messages across all conversations, newest first.
// Reverse iteration over the feed keys; seeking past the highest possible
// timestamp positions the iterator on the most recent entry.
func (m *MessageRepository) Recent(limit int) ([]DiskMessage, error) {
	prefix := []byte("feed:")
	seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)

	var messages []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d recent messages reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var record DiskMessage
				if err := cbor.Unmarshal(value, &record); err != nil {
					return err
				}
				messages = append(messages, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// Close releases the leased ID range back to badger.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

func convKey(senderID, recipientID string, at time.Time, id uint64) string {
	conv := domain.NewConversationKey(senderID, recipientID)
	return fmt.Sprintf("msg:%s:%019d:%019d", conv.String(), at.UnixNano(), id)
}
