package runtime_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/domain"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/sink"
)

var (
	alice = domain.User{ID: "u-alice", Username: "alice"}
	bob   = domain.User{ID: "u-bob", Username: "bob"}
)

func TestBroker_Send_Rejects_Empty_Message(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := slog.New(slog.DiscardHandler)

	// Given a log that must never be touched
	messageRepo := mocks.NewMockIMessageRepository(ctrl)
	userRepo := mocks.NewMockIUserRepository(ctrl)
	registry := runtime.NewConnRegistry()
	broker := runtime.NewRoomBroker(log, registry, messageRepo, userRepo, runtime.NewFanout(log, nil))

	// When sending whitespace only
	_, err := broker.Send(context.Background(), chat.PostMessageCommand{
		Room:    "general",
		Sender:  alice,
		Content: " \t\n ",
	})

	// Then the send is rejected before persistence
	req.ErrorIs(err, errors.ErrEmptyMessage)
}

func TestBroker_Send_Persists_Then_Fans_Out(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	messageRepo := mocks.NewMockIMessageRepository(ctrl)
	userRepo := mocks.NewMockIUserRepository(ctrl)
	registry := runtime.NewConnRegistry()
	broker := runtime.NewRoomBroker(log, registry, messageRepo, userRepo, runtime.NewFanout(log, nil))

	// Given alice and bob subscribed to the room
	aliceTimeline := sink.NewTimeline("alice")
	bobTimeline := sink.NewTimeline("bob")
	aliceConn, bobConn := uuid.NewString(), uuid.NewString()
	req.NoError(registry.Register(aliceConn, alice, aliceTimeline))
	req.NoError(registry.Register(bobConn, bob, bobTimeline))
	req.NoError(registry.Join(aliceConn, "general"))
	req.NoError(registry.Join(bobConn, "general"))

	messageRepo.EXPECT().StoreMessage(gomock.Any()).Return(nil).Times(1)

	// When alice sends a message with surrounding whitespace
	msg, err := broker.Send(ctx, chat.PostMessageCommand{
		Room:    "general",
		Sender:  alice,
		Content: "  hello  ",
	})

	// Then the returned message carries the log identity and trimmed content
	req.NoError(err)
	req.NotEqual(uuid.Nil, msg.ID)
	req.Equal("hello", msg.Content)
	req.Equal(alice.ID, msg.SenderID)

	// And every subscriber received it, sender included
	req.Len(aliceTimeline.Messages(), 1)
	req.Len(bobTimeline.Messages(), 1)
	req.Equal(msg.ID, bobTimeline.Messages()[0].ID)
}

func TestBroker_Send_Persistence_Failure_Suppresses_Fanout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := slog.New(slog.DiscardHandler)

	messageRepo := mocks.NewMockIMessageRepository(ctrl)
	userRepo := mocks.NewMockIUserRepository(ctrl)
	registry := runtime.NewConnRegistry()
	broker := runtime.NewRoomBroker(log, registry, messageRepo, userRepo, runtime.NewFanout(log, nil))

	bobTimeline := sink.NewTimeline("bob")
	bobConn := uuid.NewString()
	req.NoError(registry.Register(bobConn, bob, bobTimeline))
	req.NoError(registry.Join(bobConn, "general"))

	// Given a log append that fails
	messageRepo.EXPECT().StoreMessage(gomock.Any()).Return(fmt.Errorf("disk full")).Times(1)

	// When alice sends
	_, err := broker.Send(context.Background(), chat.PostMessageCommand{
		Room:    "general",
		Sender:  alice,
		Content: "hello",
	})

	// Then the sender gets a persistence error and nobody saw the message
	req.ErrorIs(err, errors.ErrPersistence)
	req.Empty(bobTimeline.Messages())
}

func TestBroker_Send_Without_Subscribers_Still_Persists(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := slog.New(slog.DiscardHandler)

	messageRepo := mocks.NewMockIMessageRepository(ctrl)
	userRepo := mocks.NewMockIUserRepository(ctrl)
	broker := runtime.NewRoomBroker(log, runtime.NewConnRegistry(), messageRepo, userRepo, runtime.NewFanout(log, nil))

	messageRepo.EXPECT().StoreMessage(gomock.Any()).Return(nil).Times(1)

	_, err := broker.Send(context.Background(), chat.PostMessageCommand{
		Room:    "ghost-town",
		Sender:  alice,
		Content: "anyone here?",
	})

	req.NoError(err)
}

func TestBroker_Admit_Replays_History_To_Joiner_Only(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	messageRepo := mocks.NewMockIMessageRepository(ctrl)
	userRepo := mocks.NewMockIUserRepository(ctrl)
	registry := runtime.NewConnRegistry()
	broker := runtime.NewRoomBroker(log, registry, messageRepo, userRepo, runtime.NewFanout(log, nil))

	// Given two persisted messages from alice
	now := time.Now().UTC()
	first := repositories.NewDiskMessage("general", alice.ID, "hello", now)
	second := repositories.NewDiskMessage("general", alice.ID, "still here", now.Add(time.Second))
	messageRepo.EXPECT().History("general").Return([]repositories.DiskMessage{first, second}, nil)

	// And a username lookup resolved once per distinct author
	userRepo.EXPECT().GetUserByID(alice.ID).Return(repositories.User{ID: alice.ID, Username: alice.Username}, nil).Times(1)

	// And bob already in the room
	bobTimeline := sink.NewTimeline("bob")
	bobConn := uuid.NewString()
	req.NoError(registry.Register(bobConn, bob, bobTimeline))
	req.NoError(registry.Join(bobConn, "general"))

	// When a second connection is admitted
	joinerTimeline := sink.NewTimeline("joiner")
	joinerConn := uuid.NewString()
	req.NoError(registry.Register(joinerConn, domain.User{ID: "u-carol", Username: "carol"}, joinerTimeline))
	req.NoError(broker.Admit(ctx, joinerConn, "general"))

	// Then the joiner got the history in ascending order, names resolved
	replayed := joinerTimeline.Messages()
	req.Len(replayed, 2)
	req.Equal("hello", replayed[0].Content)
	req.Equal("still here", replayed[1].Content)
	req.Equal(alice.ID, replayed[0].SenderID)

	// And bob received nothing
	req.Empty(bobTimeline.Messages())

	// And the joiner is now subscribed
	req.Contains(registry.SinksForRoom("general"), joinerTimeline)
}

func TestBroker_Admit_Unknown_Connection(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := slog.New(slog.DiscardHandler)

	messageRepo := mocks.NewMockIMessageRepository(ctrl)
	userRepo := mocks.NewMockIUserRepository(ctrl)
	broker := runtime.NewRoomBroker(log, runtime.NewConnRegistry(), messageRepo, userRepo, runtime.NewFanout(log, nil))

	messageRepo.EXPECT().History("general").Return(nil, nil)

	// When admitting a connection that never registered
	err := broker.Admit(context.Background(), uuid.NewString(), "general")

	req.ErrorIs(err, errors.ErrUnknownConnection)
}

// TestBroker_Join_During_Live_Traffic admits a connection while a sender
// hammers the same room. The joiner must end up with every message
// exactly once, in send order, regardless of where the admission landed
// in the stream.
func TestBroker_Join_During_Live_Traffic(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	// Given an in-memory log standing in for Badger
	var logMu sync.Mutex
	var stored []repositories.DiskMessage

	messageRepo := mocks.NewMockIMessageRepository(ctrl)
	messageRepo.EXPECT().StoreMessage(gomock.Any()).DoAndReturn(
		func(message repositories.DiskMessage) error {
			logMu.Lock()
			defer logMu.Unlock()
			stored = append(stored, message)
			return nil
		},
	).AnyTimes()
	messageRepo.EXPECT().History("general").DoAndReturn(
		func(string) ([]repositories.DiskMessage, error) {
			logMu.Lock()
			defer logMu.Unlock()
			return append([]repositories.DiskMessage{}, stored...), nil
		},
	).AnyTimes()

	userRepo := mocks.NewMockIUserRepository(ctrl)
	userRepo.EXPECT().GetUserByID(alice.ID).Return(repositories.User{ID: alice.ID, Username: alice.Username}, nil).AnyTimes()

	registry := runtime.NewConnRegistry()
	broker := runtime.NewRoomBroker(log, registry, messageRepo, userRepo, runtime.NewFanout(log, nil))

	// And alice already chatting in the room
	aliceConn := uuid.NewString()
	req.NoError(registry.Register(aliceConn, alice, sink.NewTimeline("alice")))
	req.NoError(registry.Join(aliceConn, "general"))

	const total = 200
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= total; i++ {
			_, err := broker.Send(ctx, chat.PostMessageCommand{
				Room:    "general",
				Sender:  alice,
				Content: fmt.Sprintf("m-%d", i),
			})
			if err != nil {
				t.Error(err)
				return
			}
		}
	}()

	// When bob joins somewhere in the middle of the stream
	time.Sleep(2 * time.Millisecond)
	bobTimeline := sink.NewTimeline("bob")
	bobConn := uuid.NewString()
	req.NoError(registry.Register(bobConn, bob, bobTimeline))
	req.NoError(broker.Admit(ctx, bobConn, "general"))

	<-done

	// Then bob holds all messages exactly once, in send order
	messages := bobTimeline.Messages()
	req.Len(messages, total)
	for i, msg := range messages {
		req.Equal(fmt.Sprintf("m-%d", i+1), msg.Content)
	}
}
