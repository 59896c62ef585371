package event

import (
	"log/slog"

	"chat-relay/errors"
)

// DeliveryHandler handles events emitted by the fan-out path.
// It counts successful per-sink deliveries and silently dropped ones,
// which is the only trace a failed delivery leaves in the system.
type DeliveryHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewDeliveryHandler(log *slog.Logger, counter *Counter) *DeliveryHandler {
	return &DeliveryHandler{log: log, counter: counter}
}

func (h *DeliveryHandler) Handle(event Event) {
	switch event.Type {
	case MessageDeliveredType:
		if _, ok := event.Payload.(MessageDelivered); !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(MessageDeliveredType)
	case DeliveryDroppedType:
		payload, ok := event.Payload.(DeliveryDropped)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(DeliveryDroppedType)
		h.log.Debug("Delivery dropped", "room", payload.Room)
	}
}
