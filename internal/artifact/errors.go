package artifact

import "errors"

var (
	// ErrNotFound indicates nothing is stored under the requested key
	ErrNotFound = errors.New("artifact: not found")

	// ErrUnavailable indicates the storage backend is unavailable
	ErrUnavailable = errors.New("artifact: backend unavailable")

	// ErrInvalidKey indicates a key that is empty or escapes the store root
	ErrInvalidKey = errors.New("artifact: invalid key")
)
