package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	appacc "github.com/ledger/backend/internal/application/accounting"
)

const postingLockPrefix = "ledger:lock:"

// RedisPostingLocker takes short-lived per-key locks in Redis
type RedisPostingLocker struct {
	locker *redislock.Client
}

// NewRedisPostingLocker creates a locker on a shared Redis client
func NewRedisPostingLocker(client *redis.Client) *RedisPostingLocker {
	return &RedisPostingLocker{locker: redislock.New(client)}
}

// Obtain tries once to take the lock. ErrPostingLockNotObtained means another holder has it.
func (l *RedisPostingLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.locker.Obtain(ctx, postingLockPrefix+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, appacc.ErrPostingLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain posting lock: %w", err)
	}

	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("failed to release posting lock: %w", err)
		}
		return nil
	}, nil
}

var _ appacc.PostingLocker = (*RedisPostingLocker)(nil)
