// Package runtime holds the live coordination state of the relay: the
// connection registry, the room broker, presence aggregation and typing
// marks. It orchestrates fan-out without containing transport logic.
package runtime

import (
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
)

type Set map[string]struct{}

// connState is everything the registry knows about one live connection.
// Destroyed on disconnect with no grace period.
type connState struct {
	user  domain.User
	sink  contract.EventSink
	rooms map[domain.RoomID]struct{}
}

// ConnRegistry is the single piece of mutable shared state in the relay.
// It maps connection IDs to (user, joined rooms, sink) and derives room
// membership on demand. All other components read it and emit events.
type ConnRegistry struct {
	mu          sync.RWMutex
	connections map[string]*connState
	roomMembers map[domain.RoomID]Set // room -> set of connection IDs
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{
		connections: make(map[string]*connState),
		roomMembers: make(map[domain.RoomID]Set),
	}
}

// Register creates a connection record with an empty room set.
// The identifier must be unique per live session.
func (r *ConnRegistry) Register(connID string, user domain.User, sink contract.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[connID]; ok {
		return errors.ErrDuplicateConnection
	}
	r.connections[connID] = &connState{
		user:  user,
		sink:  sink,
		rooms: make(map[domain.RoomID]struct{}),
	}
	return nil
}

// Join adds the room to the connection's membership set. Joining a room
// twice is a no-op, not an error. The room set is materialized lazily.
func (r *ConnRegistry) Join(connID string, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return errors.ErrUnknownConnection
	}
	conn.rooms[roomID] = struct{}{}

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][connID] = struct{}{}
	return nil
}

// Leave removes the room from the connection's membership set, idempotent.
// Empty room sets are pruned so an abandoned room holds no resources.
func (r *ConnRegistry) Leave(connID string, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return errors.ErrUnknownConnection
	}
	delete(conn.rooms, roomID)
	r.removeMemberLocked(roomID, connID)
	return nil
}

// Remove atomically removes the connection and returns the exact set of
// rooms it was joined to, so the caller can trigger presence broadcasts
// for those rooms and only those. Removing an unknown connection
// returns nil.
func (r *ConnRegistry) Remove(connID string) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return nil
	}
	delete(r.connections, connID)

	rooms := make([]domain.RoomID, 0, len(conn.rooms))
	for roomID := range conn.rooms {
		rooms = append(rooms, roomID)
		r.removeMemberLocked(roomID, connID)
	}
	return rooms
}

// MembersOf returns a snapshot of the de-duplicated users of all
// connections currently joined to the room. A user connected from two
// sessions counts once.
func (r *ConnRegistry) MembersOf(roomID domain.RoomID) []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	seen := make(Set, len(members))
	var users []domain.User
	for connID := range members {
		conn, exists := r.connections[connID]
		if !exists {
			continue
		}
		if _, dup := seen[conn.user.ID]; dup {
			continue
		}
		seen[conn.user.ID] = struct{}{}
		users = append(users, conn.user)
	}
	return users
}

// SinksForRoom returns a snapshot of the sinks of every connection
// joined to the room, resolved through the session directory so a user
// present in several rooms keeps a single connection record.
func (r *ConnRegistry) SinksForRoom(roomID domain.RoomID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sinksLocked(roomID, "")
}

// SinksForRoomExcept excludes every connection of one user, which is how
// typing broadcasts skip the typer's own sessions.
func (r *ConnRegistry) SinksForRoomExcept(roomID domain.RoomID, userID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sinksLocked(roomID, userID)
}

func (r *ConnRegistry) SinkOf(connID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[connID]
	if !ok {
		return nil, false
	}
	return conn.sink, true
}

// Gauges reports the live connection and room counts for telemetry.
func (r *ConnRegistry) Gauges() (connections, rooms int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections), len(r.roomMembers)
}

func (r *ConnRegistry) sinksLocked(roomID domain.RoomID, excludedUserID string) []contract.EventSink {
	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for connID := range members {
		conn, exists := r.connections[connID]
		if !exists {
			continue
		}
		if excludedUserID != "" && conn.user.ID == excludedUserID {
			continue
		}
		activeSinks = append(activeSinks, conn.sink)
	}
	return activeSinks
}

// removeMemberLocked drops the connection from the room set and prunes
// the set once empty, so no dangling room bookkeeping survives.
func (r *ConnRegistry) removeMemberLocked(roomID domain.RoomID, connID string) {
	members, ok := r.roomMembers[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.roomMembers, roomID)
	}
}
