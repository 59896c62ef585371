// Package sink provides EventSink implementations: the buffered
// per-connection channel the transports drain, and an in-memory
// timeline used to observe fan-out.
package sink

import (
	"context"
	"fmt"

	"chat-relay/domain/event"
)

// ChannelSink buffers events for one connection. The write pump of the
// transport owns the draining side.
type ChannelSink struct {
	Events chan event.DomainEvent
}

func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the fan-out path. It must not block: when the
// buffer is full the event is rejected and the caller records a dropped
// delivery for this connection, nothing more. The connection will see
// missed messages again only if it rejoins the room.
func (s *ChannelSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("sink buffer full, room %s", e.RoomID())
	}
}
