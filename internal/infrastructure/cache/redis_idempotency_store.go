package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const (
	defaultIdempotencyKeyPrefix = "ledger:idempotency:"

	// pendingMarker is stored while the first request for a key is still running
	pendingMarker = "\x00pending"
)

// RedisIdempotencyStore implements IdempotencyStore using Redis.
// Suitable for deployments where several API instances share idempotency state.
type RedisIdempotencyStore struct {
	client     *redis.Client
	ownsClient bool
	keyPrefix  string
}

// NewRedisIdempotencyStore creates a Redis-based idempotency store with its own client
func NewRedisIdempotencyStore(cfg RedisConfig) (*RedisIdempotencyStore, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &RedisIdempotencyStore{
		client:     client,
		ownsClient: true,
		keyPrefix:  defaultIdempotencyKeyPrefix,
	}, nil
}

// NewRedisIdempotencyStoreWithClient creates a store with an existing Redis client.
// The caller keeps ownership of the client.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultIdempotencyKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Reserve claims the key with SETNX so concurrent requests race on a single atomic write
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, pendingMarker, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Complete stores the response for the key, replacing the pending marker
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, response, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

// Lookup returns the stored response, or nil when the key is unknown or still pending
func (s *RedisIdempotencyStore) Lookup(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if string(data) == pendingMarker {
		return nil, nil
	}
	return data, nil
}

// Release deletes the key
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close closes the Redis client if the store created it
func (s *RedisIdempotencyStore) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
