package event

type Type string

const (
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	MessageDeliveredType    Type = "MESSAGE_DELIVERED"
	DeliveryDroppedType     Type = "DELIVERY_DROPPED"
	PresenceBroadcastType   Type = "PRESENCE_BROADCAST"
	TypingExpiredType       Type = "TYPING_EXPIRED"
)

// Event is a technical (non-domain) notification used by the telemetry
// pipeline. Losing one is acceptable.
type Event struct {
	Type    Type
	Payload any
}

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type MessageDelivered struct {
	Room string
}

type DeliveryDropped struct {
	Room string
}
