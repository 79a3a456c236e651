package artifact

import (
	"context"
	"sync"

	"github.com/go-authgate/qrgate/internal/core"
)

// Compile-time interface check.
var _ core.ArtifactStore = (*MemoryStore)(nil)

// MemoryStore keeps artifacts in process memory.
// Suitable for tests and single-instance deployments that can regenerate images.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string][]byte),
	}
}

// Put stores a copy of data under key.
func (m *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = buf
	return nil
}

// Get returns a copy of the bytes stored under key.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, exists := m.items[key]
	if !exists {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Len returns the number of stored artifacts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close clears all stored artifacts.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string][]byte)
	return nil
}

// Health always returns nil for memory store.
func (m *MemoryStore) Health(ctx context.Context) error {
	return nil
}
