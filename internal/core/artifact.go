package core

import "context"

// ArtifactStore persists generated QR images keyed by a relative path such as
// "qr/{token}.png". Implementations must be safe for concurrent use.
type ArtifactStore interface {
	// Put stores data under key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the stored bytes.
	// Returns artifact.ErrNotFound if nothing is stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Health checks if the backend is reachable
	Health(ctx context.Context) error

	// Close releases backend resources
	Close() error
}
