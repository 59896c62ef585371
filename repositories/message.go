//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// IMessageRepository is the message log consumed by the broker: append
// plus an ordered per-room query. Durability precedes visibility, so a
// failed StoreMessage means the message is never fanned out.
type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	History(room string) ([]DiskMessage, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

// NewMessageRepository builds the Badger-backed log. A nil limitMessages
// replays the full room history; otherwise only the newest N messages
// are returned by History.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type DiskMessage struct {
	ID      uuid.UUID `cbor:"1,keyasint"`
	Room    string    `cbor:"2,keyasint"`
	Author  string    `cbor:"3,keyasint"`
	Content string    `cbor:"4,keyasint"`
	At      int64     `cbor:"5,keyasint"` // UnixNano, UTC
}

// NewDiskMessage stamps a fresh identifier. The log is the authority
// for message identity, so callers never pick their own.
func NewDiskMessage(room, author, content string, at time.Time) DiskMessage {
	return DiskMessage{
		ID:      uuid.New(),
		Room:    room,
		Author:  author,
		Content: content,
		At:      at.UTC().UnixNano(),
	}
}

func (d DiskMessage) CreatedAt() time.Time {
	return time.Unix(0, d.At).UTC()
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{hex(room)}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
//
// The room segment is hex-encoded: room keys are arbitrary strings and
// may contain the ':' separator, so the raw room would make the prefix
// of one room a prefix of another ("general" vs "general:private").
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := fmt.Sprintf("msg:%x:%019d:%s", message.Room, message.At, message.ID)
	bytes, err := cbor.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// History retrieves a room's messages in ascending creation order.
// Thanks to the padded timestamp in the key, a forward prefix scan is
// already chronological; when a replay cap is configured the scan runs
// in reverse to keep the newest N, then the slice is flipped back.
func (m MessageRepository) History(room string) ([]DiskMessage, error) {
	var byteMessages [][]byte
	prefix := []byte(fmt.Sprintf("msg:%x:", room))

	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = m.limitMessages != nil
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := prefix
		if options.Reverse {
			// Seek past the newest possible key for this room, then walk back.
			seekKey = append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		}

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte{}, value...))
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

	if m.limitMessages != nil {
		lo.Reverse(byteMessages)
	}

	diskMessages := make([]DiskMessage, 0, len(byteMessages))
	for _, b := range byteMessages {
		var message DiskMessage
		if err = cbor.Unmarshal(b, &message); err != nil {
			return nil, err
		}
		diskMessages = append(diskMessages, message)
	}
	return diskMessages, nil
}
