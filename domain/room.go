package domain

// RoomID identifies a logical channel by its string key. Rooms are
// derived views over live membership: any key is valid, a room
// materializes when the first connection joins it and holds no
// resources once the last member leaves.
type RoomID string
