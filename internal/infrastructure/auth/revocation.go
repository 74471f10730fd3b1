package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRevocationPrefix = "auth:revoked:"

// RevocationList reports tokens revoked before their expiry, by token id or by
// user-wide invalidation (logout everywhere, password change).
type RevocationList interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	IsUserInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// RedisRevocationList reads the revocation keys the identity service writes to Redis:
//
//	auth:revoked:jti:<token id>   any value, expires with the token
//	auth:revoked:user:<user id>   unix seconds; tokens issued at or before it are invalid
type RedisRevocationList struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationList creates a revocation list on client
func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client, prefix: defaultRevocationPrefix}
}

func (r *RedisRevocationList) tokenKey(tokenID string) string { return r.prefix + "jti:" + tokenID }
func (r *RedisRevocationList) userKey(userID string) string   { return r.prefix + "user:" + userID }

// IsRevoked reports whether the token id has been revoked
func (r *RedisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.tokenKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}

// IsUserInvalidated reports whether tokens issued at issuedAt were invalidated for the user
func (r *RedisRevocationList) IsUserInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := r.client.Get(ctx, r.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user invalidation: %w", err)
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse invalidation timestamp %q: %w", raw, err)
	}
	return issuedAt.Unix() <= cutoff, nil
}

// Revoke records a token revocation. Used by operators and tests.
func (r *RedisRevocationList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return r.client.Set(ctx, r.tokenKey(tokenID), "1", ttl).Err()
}

// InvalidateUser invalidates every token issued to userID up to at
func (r *RedisRevocationList) InvalidateUser(ctx context.Context, userID string, at time.Time, ttl time.Duration) error {
	return r.client.Set(ctx, r.userKey(userID), at.Unix(), ttl).Err()
}

// InMemoryRevocationList is a single-process RevocationList for development without Redis
type InMemoryRevocationList struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
	users  map[string]time.Time
}

// NewInMemoryRevocationList creates an empty in-memory revocation list
func NewInMemoryRevocationList() *InMemoryRevocationList {
	return &InMemoryRevocationList{tokens: map[string]time.Time{}, users: map[string]time.Time{}}
}

// Revoke revokes tokenID until ttl elapses
func (l *InMemoryRevocationList) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[tokenID] = time.Now().Add(ttl)
	return nil
}

// InvalidateUser invalidates tokens issued to userID up to at
func (l *InMemoryRevocationList) InvalidateUser(_ context.Context, userID string, at time.Time, _ time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users[userID] = at
	return nil
}

// IsRevoked implements RevocationList
func (l *InMemoryRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	until, ok := l.tokens[tokenID]
	return ok && time.Now().Before(until), nil
}

// IsUserInvalidated implements RevocationList
func (l *InMemoryRevocationList) IsUserInvalidated(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cutoff, ok := l.users[userID]
	return ok && !issuedAt.After(cutoff), nil
}

var (
	_ RevocationList = (*RedisRevocationList)(nil)
	_ RevocationList = (*InMemoryRevocationList)(nil)
)
