package artifact

import (
	"context"
	"fmt"

	"github.com/go-authgate/qrgate/internal/core"

	"github.com/redis/rueidis"
)

// Compile-time interface check.
var _ core.ArtifactStore = (*RueidisStore)(nil)

// RueidisStore keeps artifacts in Redis via the rueidis client.
// Suitable for multi-instance deployments where images must be shared.
type RueidisStore struct {
	client    rueidis.Client
	keyPrefix string
}

// NewRueidisStore creates a Redis-backed artifact store and verifies the connection.
func NewRueidisStore(
	ctx context.Context,
	addr, password string,
	db int,
	keyPrefix string,
) (*RueidisStore, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		SelectDB:     db,
		DisableCache: true, // Basic mode without client-side caching
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RueidisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}, nil
}

// Put stores data under key without expiry.
func (r *RueidisStore) Put(ctx context.Context, key string, data []byte) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	cmd := r.client.B().Set().
		Key(r.keyPrefix + key).
		Value(rueidis.BinaryString(data)).
		Build()

	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get retrieves the bytes stored under key.
func (r *RueidisStore) Get(ctx context.Context, key string) ([]byte, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	resp := r.client.Do(ctx, r.client.B().Get().Key(r.keyPrefix+key).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// Close closes the Redis connection.
func (r *RueidisStore) Close() error {
	r.client.Close()
	return nil
}

// Health checks the Redis connection.
func (r *RueidisStore) Health(ctx context.Context) error {
	return r.client.Do(ctx, r.client.B().Ping().Build()).Error()
}
