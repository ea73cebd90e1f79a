package model

import "errors"

var (
	// ErrUnauthenticated is returned when a credential is missing, malformed,
	// expired, or does not map to an active account.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidRole is returned when a requested staff role is not part of
	// the known role set.
	ErrInvalidRole = errors.New("invalid role")

	// ErrUserNotFound is returned when a user lookup finds no matching account.
	ErrUserNotFound = errors.New("user not found")
)
