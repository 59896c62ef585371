package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/repositories"

	"github.com/samber/lo"
)

// RoomBroker delivers messages to every connection joined to a room,
// after durable persistence, and replays log history on join.
//
// Each touched room owns one admission mutex. Send and Admit serialize
// on it, which yields the two ordering guarantees of the design: log
// append order equals delivery order, and the join sequence
// (history snapshot, then subscribe) is a single logical step so no
// message is lost or duplicated across the snapshot/live boundary.
// Unrelated rooms never share a lock.
type RoomBroker struct {
	log      *slog.Logger
	registry contract.IRegistry
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
	fanout   Fanout

	mu        sync.Mutex
	admission map[domain.RoomID]*sync.Mutex
}

func NewRoomBroker(log *slog.Logger, registry contract.IRegistry,
	messages repositories.IMessageRepository, users repositories.IUserRepository,
	fanout Fanout) *RoomBroker {
	return &RoomBroker{
		log:       log,
		registry:  registry,
		messages:  messages,
		users:     users,
		fanout:    fanout,
		admission: make(map[domain.RoomID]*sync.Mutex),
	}
}

// Send validates, persists and fans out one message.
// The message is not broadcast when the log append fails: durability
// precedes visibility. Sending to a room with zero subscribers is legal
// and still persists. Per-connection delivery failures are dropped by
// the fan-out and never fail the send.
func (b *RoomBroker) Send(ctx context.Context, cmd chat.PostMessageCommand) (domain.Message, error) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}

	at := cmd.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	lock := b.roomLock(cmd.RoomID())
	lock.Lock()
	defer lock.Unlock()

	disk := repositories.NewDiskMessage(cmd.Room, cmd.Sender.ID, content, at)
	if err := b.messages.StoreMessage(disk); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	msg := domain.Message{
		ID:        disk.ID,
		Room:      cmd.Room,
		SenderID:  cmd.Sender.ID,
		Content:   content,
		CreatedAt: disk.CreatedAt(),
	}

	b.fanout.Deliver(ctx, b.registry.SinksForRoom(cmd.RoomID()), event.MessagePosted{
		ID:      msg.ID,
		Room:    msg.Room,
		Author:  cmd.Sender,
		Content: msg.Content,
		At:      msg.CreatedAt,
	})
	return msg, nil
}

// Admit executes the join sequence as a single logical step: under the
// room's admission lock it snapshots the full history in ascending
// order, delivers it to the joining connection only, then registers the
// subscription. Messages sent after the snapshot reach the connection
// via live fan-out, exactly once.
func (b *RoomBroker) Admit(ctx context.Context, connID string, roomID domain.RoomID) error {
	lock := b.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	history, err := b.messages.History(string(roomID))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	if err := b.registry.Join(connID, roomID); err != nil {
		// The connection disconnected between handshake and join.
		return err
	}

	sink, ok := b.registry.SinkOf(connID)
	if !ok {
		return errors.ErrUnknownConnection
	}
	b.fanout.Deliver(ctx, []contract.EventSink{sink}, event.HistoryReplayed{
		Room:     string(roomID),
		Messages: b.fromDiskMessages(history),
	})
	return nil
}

// roomLock lazily creates the admission mutex of a room. Locks are tiny
// and rooms are bounded by usage, so they are never pruned.
func (b *RoomBroker) roomLock(roomID domain.RoomID) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()

	lock, ok := b.admission[roomID]
	if !ok {
		lock = &sync.Mutex{}
		b.admission[roomID] = lock
	}
	return lock
}

// fromDiskMessages projects log records into the live event shape. The
// display names of senders are resolved once per distinct author so a
// long history costs one store lookup per user, not per message.
func (b *RoomBroker) fromDiskMessages(messages []repositories.DiskMessage) []event.MessagePosted {
	names := make(map[string]string)
	resolve := func(userID string) domain.User {
		name, ok := names[userID]
		if !ok {
			if user, err := b.users.GetUserByID(userID); err == nil {
				name = user.Username
			}
			names[userID] = name
		}
		return domain.User{ID: userID, Username: name}
	}

	return lo.Map(messages, func(item repositories.DiskMessage, _ int) event.MessagePosted {
		return event.MessagePosted{
			ID:      item.ID,
			Room:    item.Room,
			Author:  resolve(item.Author),
			Content: item.Content,
			At:      item.CreatedAt(),
		}
	})
}
