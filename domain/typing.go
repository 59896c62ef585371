package domain

import "time"

// TypingMark is the transient composition state of one user in one room.
// At most one active mark exists per (room, user) pair; a newer mark
// replaces the old one and resets the expiry.
type TypingMark struct {
	Room      string
	User      User
	ExpiresAt time.Time
}
