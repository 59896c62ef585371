// Package event defines the typed notifications pushed to connection
// sinks by the fan-out path, and the technical events consumed by the
// telemetry pipeline.
package event

import (
	"time"

	"chat-relay/domain"

	"github.com/google/uuid"
)

// DomainEvent is any room-scoped notification delivered to subscribers.
type DomainEvent interface {
	RoomID() domain.RoomID
}

// MessagePosted is fanned out to every subscriber of the room after the
// message has been durably appended to the log.
type MessagePosted struct {
	ID      uuid.UUID
	Room    string
	Author  domain.User
	Content string
	At      time.Time
}

func (m MessagePosted) RoomID() domain.RoomID {
	return domain.RoomID(m.Room)
}

// HistoryReplayed carries the point-in-time snapshot of a room's log,
// delivered once to the joining connection only. Entries share the live
// message shape so subscribers render both the same way.
type HistoryReplayed struct {
	Room     string
	Messages []MessagePosted
}

func (h HistoryReplayed) RoomID() domain.RoomID {
	return domain.RoomID(h.Room)
}

// PresenceUpdated carries the de-duplicated online user list of a room,
// recomputed fresh after every join, leave and disconnect.
type PresenceUpdated struct {
	Room  string
	Users []domain.User
}

func (p PresenceUpdated) RoomID() domain.RoomID {
	return domain.RoomID(p.Room)
}

// TypingStarted signals an Idle to Typing transition for one user.
type TypingStarted struct {
	Room string
	User domain.User
}

func (t TypingStarted) RoomID() domain.RoomID {
	return domain.RoomID(t.Room)
}

// TypingStopped signals a Typing to Idle transition, either explicit or
// by mark expiry.
type TypingStopped struct {
	Room string
	User domain.User
}

func (t TypingStopped) RoomID() domain.RoomID {
	return domain.RoomID(t.Room)
}

// SendRejected is delivered to the originating connection only, when a
// send fails validation or persistence. Other subscribers never see it.
type SendRejected struct {
	Room   string
	Reason string
}

func (s SendRejected) RoomID() domain.RoomID {
	return domain.RoomID(s.Room)
}
