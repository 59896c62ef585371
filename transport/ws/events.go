// Package ws is the WebSocket transport of the relay: it decodes client
// JSON events into typed commands and encodes domain events back into
// the wire vocabulary the browser frontend speaks.
package ws

import (
	"time"

	"github.com/samber/lo"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Client to server event types.
const (
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
)

// Server to client event types.
const (
	EventPreviousMessages  = "previousMessages"
	EventReceiveMessage    = "receiveMessage"
	EventOnlineUsers       = "onlineUsers"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventError             = "error"
)

// ClientEvent is one inbound frame. The sender identity never comes
// from the payload: it is taken from the authenticated session.
type ClientEvent struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Content string `json:"content,omitempty"`
}

// ServerEvent is one outbound frame.
type ServerEvent struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Payload any    `json:"payload,omitempty"`
}

type UserPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type MessagePayload struct {
	ID        string      `json:"id"`
	Sender    UserPayload `json:"sender"`
	Content   string      `json:"content"`
	CreatedAt string      `json:"createdAt"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
}

// FromDomainEvent translates a fan-out event into its wire frame.
// The second return is false for events this transport does not expose.
func FromDomainEvent(e event.DomainEvent) (ServerEvent, bool) {
	room := string(e.RoomID())

	switch evt := e.(type) {
	case event.MessagePosted:
		return ServerEvent{Type: EventReceiveMessage, RoomID: room, Payload: MessagePayload{
			ID:        evt.ID.String(),
			Sender:    UserPayload{UserID: evt.Author.ID, Username: evt.Author.Username},
			Content:   evt.Content,
			CreatedAt: evt.At.Format(time.RFC3339Nano),
		}}, true
	case event.HistoryReplayed:
		return ServerEvent{Type: EventPreviousMessages, RoomID: room, Payload: toMessagePayloads(evt.Messages)}, true
	case event.PresenceUpdated:
		return ServerEvent{Type: EventOnlineUsers, RoomID: room, Payload: toUserPayloads(evt.Users)}, true
	case event.TypingStarted:
		return ServerEvent{Type: EventUserTyping, RoomID: room, Payload: UserPayload{
			UserID: evt.User.ID, Username: evt.User.Username,
		}}, true
	case event.TypingStopped:
		return ServerEvent{Type: EventUserStoppedTyping, RoomID: room, Payload: UserPayload{
			UserID: evt.User.ID, Username: evt.User.Username,
		}}, true
	case event.SendRejected:
		return ServerEvent{Type: EventError, RoomID: room, Payload: ErrorPayload{Reason: evt.Reason}}, true
	}
	return ServerEvent{}, false
}

func toUserPayloads(users []domain.User) []UserPayload {
	return lo.Map(users, func(u domain.User, _ int) UserPayload {
		return UserPayload{UserID: u.ID, Username: u.Username}
	})
}

func toMessagePayloads(messages []event.MessagePosted) []MessagePayload {
	return lo.Map(messages, func(m event.MessagePosted, _ int) MessagePayload {
		return MessagePayload{
			ID:        m.ID.String(),
			Sender:    UserPayload{UserID: m.Author.ID, Username: m.Author.Username},
			Content:   m.Content,
			CreatedAt: m.At.Format(time.RFC3339Nano),
		}
	})
}
