package runtime

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// Fanout delivers one domain event to a snapshot of sinks.
//
// It provides best-effort fan-out with no guarantees regarding delivery
// or retries: a sink that is full or whose connection died between
// snapshot and send is dropped silently and only leaves a telemetry
// trace. Fanout is not a message broker.
//
// Ordering is the caller's concern: the broker invokes Deliver while
// holding the room's admission lock, which is what makes log order
// equal delivery order for every subscriber.
type Fanout struct {
	log       *slog.Logger
	telemetry chan<- event.Event
}

func NewFanout(log *slog.Logger, telemetry chan<- event.Event) Fanout {
	return Fanout{log: log, telemetry: telemetry}
}

// Deliver One sink for each event. Per-sink failures never escalate.
func (f Fanout) Deliver(ctx context.Context, sinks []contract.EventSink, evt event.DomainEvent) {
	for _, sink := range sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			f.log.Warn("Dropped delivery", "room", evt.RoomID(), "error", err)
			f.emit(event.Event{Type: event.DeliveryDroppedType, Payload: event.DeliveryDropped{Room: string(evt.RoomID())}})
			continue
		}
		if _, ok := evt.(event.MessagePosted); ok {
			f.emit(event.Event{Type: event.MessageDeliveredType, Payload: event.MessageDelivered{Room: string(evt.RoomID())}})
		}
	}
}

func (f Fanout) emit(evt event.Event) {
	if f.telemetry == nil {
		return
	}
	select {
	case f.telemetry <- evt:
	default:
		f.log.Debug("Telemetry event lost")
	}
}
