// Package chat defines the typed inbound commands of the relay.
// Each client event decoded by a transport becomes one of these
// commands before it reaches the broker, which keeps the fan-out
// logic testable without a live connection.
package chat

import (
	"time"

	"chat-relay/domain"
)

type Command interface {
	RoomID() domain.RoomID
}

type JoinRoomCommand struct {
	Room         string
	ConnectionID string
}

func (c JoinRoomCommand) RoomID() domain.RoomID {
	return domain.RoomID(c.Room)
}

type LeaveRoomCommand struct {
	Room         string
	ConnectionID string
}

func (c LeaveRoomCommand) RoomID() domain.RoomID {
	return domain.RoomID(c.Room)
}

type PostMessageCommand struct {
	Room      string
	Sender    domain.User
	Content   string
	CreatedAt time.Time
}

func (c PostMessageCommand) RoomID() domain.RoomID {
	return domain.RoomID(c.Room)
}

type StartTypingCommand struct {
	Room string
	User domain.User
}

func (c StartTypingCommand) RoomID() domain.RoomID {
	return domain.RoomID(c.Room)
}

type StopTypingCommand struct {
	Room   string
	UserID string
}

func (c StopTypingCommand) RoomID() domain.RoomID {
	return domain.RoomID(c.Room)
}
