package domain

// User is the identity attached to a connection after authentication.
// It is loaded once from the account store and treated as an immutable
// value for the lifetime of the session.
type User struct {
	ID       string
	Username string
}
