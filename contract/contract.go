//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives notifications for one live connection. Consume must
// not block the fan-out path: implementations buffer and drop rather
// than stall unrelated rooms.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the presence source of truth: the authoritative map from
// live connections to their user identity and joined rooms.
type IRegistry interface {
	Register(connID string, user domain.User, sink EventSink) error
	Join(connID string, roomID domain.RoomID) error
	Leave(connID string, roomID domain.RoomID) error
	Remove(connID string) []domain.RoomID
	MembersOf(roomID domain.RoomID) []domain.User
	SinksForRoom(roomID domain.RoomID) []EventSink
	SinksForRoomExcept(roomID domain.RoomID, userID string) []EventSink
	SinkOf(connID string) (EventSink, bool)
}
