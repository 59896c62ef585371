package runtime

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
)

// PresenceAggregator broadcasts the current member list of a room
// whenever membership changes. It owns no state: the list is always
// derived fresh from the registry to avoid drift, and the broadcast is
// a best-effort side channel with no ordering contract relative to
// message fan-out.
type PresenceAggregator struct {
	log      *slog.Logger
	registry contract.IRegistry
	fanout   Fanout
}

func NewPresenceAggregator(log *slog.Logger, registry contract.IRegistry, fanout Fanout) PresenceAggregator {
	return PresenceAggregator{log: log, registry: registry, fanout: fanout}
}

// BroadcastPresence recomputes the de-duplicated online users of the
// room and pushes the list to every connection in that set. Callers
// trigger it after every join, leave and disconnect-initiated removal,
// once per affected room.
func (p PresenceAggregator) BroadcastPresence(ctx context.Context, roomID domain.RoomID) {
	users := p.registry.MembersOf(roomID)
	sinks := p.registry.SinksForRoom(roomID)
	if len(sinks) == 0 {
		return
	}
	p.fanout.Deliver(ctx, sinks, event.PresenceUpdated{
		Room:  string(roomID),
		Users: users,
	})
}
