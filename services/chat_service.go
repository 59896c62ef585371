package services

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/chat"
	"chat-relay/runtime"
)

// IChatService is the session-facing facade of the relay core. One
// transport connection maps to one Connect/Disconnect pair; everything
// in between is join/leave/send/typing commands.
type IChatService interface {
	Connect(connID string, user domain.User, sink contract.EventSink) error
	Disconnect(ctx context.Context, connID, userID string)
	JoinRoom(ctx context.Context, cmd chat.JoinRoomCommand) error
	LeaveRoom(ctx context.Context, cmd chat.LeaveRoomCommand, userID string) error
	PostMessage(ctx context.Context, cmd chat.PostMessageCommand) (domain.Message, error)
	StartTyping(ctx context.Context, cmd chat.StartTypingCommand)
	StopTyping(ctx context.Context, cmd chat.StopTypingCommand)
}

type ChatService struct {
	log      *slog.Logger
	registry contract.IRegistry
	broker   *runtime.RoomBroker
	presence runtime.PresenceAggregator
	typing   *runtime.TypingCoordinator
}

func NewChatService(log *slog.Logger, registry contract.IRegistry,
	broker *runtime.RoomBroker, presence runtime.PresenceAggregator,
	typing *runtime.TypingCoordinator) *ChatService {
	return &ChatService{
		log:      log,
		registry: registry,
		broker:   broker,
		presence: presence,
		typing:   typing,
	}
}

// Connect admits an authenticated connection into the registry with an
// empty room set.
func (s *ChatService) Connect(connID string, user domain.User, sink contract.EventSink) error {
	return s.registry.Register(connID, user, sink)
}

// Disconnect removes the connection and rebroadcasts presence to
// exactly the rooms it was joined to. Typing marks of the user in those
// rooms are released as well; StopTyping is idempotent so rooms where
// another session keeps the user online are unaffected beyond one
// stopped signal.
func (s *ChatService) Disconnect(ctx context.Context, connID, userID string) {
	rooms := s.registry.Remove(connID)
	for _, roomID := range rooms {
		s.typing.StopTyping(ctx, string(roomID), userID)
		s.presence.BroadcastPresence(ctx, roomID)
	}
}

// JoinRoom replays history to the joining connection, subscribes it,
// then broadcasts the new presence list to the room.
func (s *ChatService) JoinRoom(ctx context.Context, cmd chat.JoinRoomCommand) error {
	if err := s.broker.Admit(ctx, cmd.ConnectionID, cmd.RoomID()); err != nil {
		return err
	}
	s.presence.BroadcastPresence(ctx, cmd.RoomID())
	return nil
}

func (s *ChatService) LeaveRoom(ctx context.Context, cmd chat.LeaveRoomCommand, userID string) error {
	if err := s.registry.Leave(cmd.ConnectionID, cmd.RoomID()); err != nil {
		return err
	}
	s.typing.StopTyping(ctx, cmd.Room, userID)
	s.presence.BroadcastPresence(ctx, cmd.RoomID())
	return nil
}

// PostMessage persists then fans out. A send also ends the sender's
// typing mark.
func (s *ChatService) PostMessage(ctx context.Context, cmd chat.PostMessageCommand) (domain.Message, error) {
	msg, err := s.broker.Send(ctx, cmd)
	if err != nil {
		return domain.Message{}, err
	}
	s.typing.StopTyping(ctx, cmd.Room, cmd.Sender.ID)
	return msg, nil
}

func (s *ChatService) StartTyping(ctx context.Context, cmd chat.StartTypingCommand) {
	s.typing.StartTyping(ctx, cmd.Room, cmd.User)
}

func (s *ChatService) StopTyping(ctx context.Context, cmd chat.StopTypingCommand) {
	s.typing.StopTyping(ctx, cmd.Room, cmd.UserID)
}
