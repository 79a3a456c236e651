package store

import "errors"

var (
	// ErrRecordNotFound is returned when no access request matches the token
	ErrRecordNotFound = errors.New("record not found")

	// ErrStatusConflict is returned by ApplyTransition when no row matched the
	// expected prior state (0 rows updated), i.e. a concurrent request changed it first.
	ErrStatusConflict = errors.New("access request changed concurrently")

	// ErrTokenConflict is returned when a token is already taken
	ErrTokenConflict = errors.New("token already exists")
)
