// Package domain contains core concepts of the relay.
// This file defines Message values and related rules.
// Messages are immutable once created and never mutated or deleted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat message, ordered within its room
// by creation time (the message log append order is canonical).
type Message struct {
	ID        uuid.UUID
	Room      string
	SenderID  string
	Content   string
	CreatedAt time.Time
}
