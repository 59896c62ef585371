package sink

import (
	"context"
	"sync"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Timeline records everything fanned out to it, in arrival order. It
// backs assertions on delivery order and presence lists without a live
// transport.
type Timeline struct {
	Owner string

	mu       sync.Mutex
	messages []domain.Message
	presence [][]domain.User
	typing   []event.DomainEvent
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{Owner: owner}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch evt := e.(type) {
	case event.MessagePosted:
		t.messages = append(t.messages, domain.Message{
			ID:        evt.ID,
			Room:      evt.Room,
			SenderID:  evt.Author.ID,
			Content:   evt.Content,
			CreatedAt: evt.At,
		})
	case event.HistoryReplayed:
		for _, m := range evt.Messages {
			t.messages = append(t.messages, domain.Message{
				ID:        m.ID,
				Room:      m.Room,
				SenderID:  m.Author.ID,
				Content:   m.Content,
				CreatedAt: m.At,
			})
		}
	case event.PresenceUpdated:
		t.presence = append(t.presence, evt.Users)
	case event.TypingStarted, event.TypingStopped:
		t.typing = append(t.typing, evt)
	}
	return nil
}

func (t *Timeline) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.Message{}, t.messages...)
}

// LastPresence returns the most recent presence list, nil if none.
func (t *Timeline) LastPresence() []domain.User {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.presence) == 0 {
		return nil
	}
	return t.presence[len(t.presence)-1]
}

func (t *Timeline) PresenceBroadcasts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.presence)
}

func (t *Timeline) TypingEvents() []event.DomainEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]event.DomainEvent{}, t.typing...)
}
