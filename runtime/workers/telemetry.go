package workers

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker drains the technical event channel and dispatches each
// event to its handlers. Losing telemetry is acceptable; blocking the
// emitters is not, so producers send non-blocking and this worker is the
// only consumer.
type TelemetryWorker struct {
	log           *slog.Logger
	telemetryChan <-chan event.Event
	handlers      []event.Handler
}

func NewTelemetryWorker(log *slog.Logger,
	telemetryChan <-chan event.Event,
	handlers []event.Handler) *TelemetryWorker {
	return &TelemetryWorker{
		log:           log,
		telemetryChan: telemetryChan,
		handlers:      handlers,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case evt, ok := <-w.telemetryChan:
			if !ok {
				return nil
			}
			w.handle(evt)
		}
	}
}

func (w *TelemetryWorker) handle(evt event.Event) {
	for _, h := range w.handlers {
		h.Handle(evt)
	}
}
