package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrInvalidPayload = fmt.Errorf("invalid event payload")

	// Registry errors. ErrUnknownConnection is benign for most callers:
	// disconnect races are expected, so join/leave against a connection
	// that already went away is treated as a no-op upstream.
	ErrDuplicateConnection = fmt.Errorf("connection already registered")
	ErrUnknownConnection   = fmt.Errorf("connection not registered")

	// Broker errors, surfaced to the originating connection only.
	ErrEmptyMessage = fmt.Errorf("message content is empty")
	ErrPersistence  = fmt.Errorf("message log append failed")

	// Account errors.
	ErrUserAlreadyExists   = fmt.Errorf("user already exists")
	ErrUserNotFound        = fmt.Errorf("user not found")
	ErrInvalidCredentials  = fmt.Errorf("invalid credentials")
	ErrInvalidRegistration = fmt.Errorf("invalid registration request")
	ErrInvalidPassword     = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration     = fmt.Errorf("token generation failed")
)
