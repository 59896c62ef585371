package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
)

// DefaultTypingTTL is how long a typing mark survives without a
// refreshing keystroke before it expires on its own.
const DefaultTypingTTL = 3 * time.Second

type pairKey struct {
	room   domain.RoomID
	userID string
}

// TypingCoordinator tracks short-lived per-room typing state with
// automatic expiry, independent of message delivery.
//
// The state machine per (room, user) pair is Idle -> Typing -> Idle.
// Broadcasts are debounced: only the Idle->Typing transition emits a
// TypingStarted event, re-invoking StartTyping while already Typing
// just resets the expiry.
//
// Marks are explicit scheduled expiries, not timer handles: ExpireDue
// is driven by the sweeper worker in production and by virtual time in
// tests, so a mark can never double-fire.
//
// Broadcasts are emitted while holding the mark mutex, so observers see
// started/stopped in mark-mutation order even when one user races a
// start against a stop from another session. Sinks never block the
// fan-out path, which keeps the critical section short.
type TypingCoordinator struct {
	log      *slog.Logger
	registry contract.IRegistry
	fanout   Fanout
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	marks map[pairKey]domain.TypingMark
}

func NewTypingCoordinator(log *slog.Logger, registry contract.IRegistry,
	fanout Fanout, ttl time.Duration) *TypingCoordinator {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &TypingCoordinator{
		log:      log,
		registry: registry,
		fanout:   fanout,
		ttl:      ttl,
		now:      time.Now,
		marks:    make(map[pairKey]domain.TypingMark),
	}
}

// StartTyping transitions the pair to Typing and (re)arms its expiry.
// The broadcast skips the typer's own connections.
func (t *TypingCoordinator) StartTyping(ctx context.Context, room string, user domain.User) {
	key := pairKey{room: domain.RoomID(room), userID: user.ID}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, alreadyTyping := t.marks[key]
	t.marks[key] = domain.TypingMark{
		Room:      room,
		User:      user,
		ExpiresAt: t.now().Add(t.ttl),
	}
	if alreadyTyping {
		return
	}
	t.fanout.Deliver(ctx, t.registry.SinksForRoomExcept(key.room, user.ID), event.TypingStarted{
		Room: room,
		User: user,
	})
}

// StopTyping transitions the pair to Idle. Idempotent: stopping an
// already-Idle pair broadcasts nothing.
func (t *TypingCoordinator) StopTyping(ctx context.Context, room, userID string) {
	key := pairKey{room: domain.RoomID(room), userID: userID}

	t.mu.Lock()
	defer t.mu.Unlock()

	mark, active := t.marks[key]
	if !active {
		return
	}
	delete(t.marks, key)
	t.broadcastStopped(ctx, mark)
}

// ExpireDue ends every mark whose expiry is at or before now, with
// exactly one TypingStopped broadcast each. The sweeper calls it with
// wall-clock time; tests advance a virtual clock instead.
func (t *TypingCoordinator) ExpireDue(ctx context.Context, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	expired := 0
	for key, mark := range t.marks {
		if !mark.ExpiresAt.After(now) {
			delete(t.marks, key)
			t.broadcastStopped(ctx, mark)
			expired++
		}
	}
	return expired
}

// Active reports whether the pair currently holds a typing mark.
func (t *TypingCoordinator) Active(room, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.marks[pairKey{room: domain.RoomID(room), userID: userID}]
	return ok
}

func (t *TypingCoordinator) broadcastStopped(ctx context.Context, mark domain.TypingMark) {
	t.fanout.Deliver(ctx, t.registry.SinksForRoom(domain.RoomID(mark.Room)), event.TypingStopped{
		Room: mark.Room,
		User: mark.User,
	})
}
