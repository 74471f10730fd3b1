package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRevocationList(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	list := NewRedisRevocationList(client)
	ctx := context.Background()

	t.Run("token revocation expires with ttl", func(t *testing.T) {
		revoked, err := list.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)

		require.NoError(t, list.Revoke(ctx, "jti-1", time.Minute))
		assert.True(t, mr.Exists("auth:revoked:jti:jti-1"))
		revoked, err = list.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		mr.FastForward(2 * time.Minute)
		revoked, err = list.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("user invalidation compares issue time", func(t *testing.T) {
		cutoff := time.Unix(1_735_689_600, 0)
		require.NoError(t, list.InvalidateUser(ctx, "user-1", cutoff, time.Hour))

		invalid, err := list.IsUserInvalidated(ctx, "user-1", cutoff.Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, invalid)

		invalid, err = list.IsUserInvalidated(ctx, "user-1", cutoff.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, invalid)

		invalid, err = list.IsUserInvalidated(ctx, "user-2", cutoff)
		require.NoError(t, err)
		assert.False(t, invalid)
	})

	t.Run("corrupt timestamp is an error", func(t *testing.T) {
		require.NoError(t, mr.Set("auth:revoked:user:user-3", "yesterday"))
		_, err := list.IsUserInvalidated(ctx, "user-3", time.Now())
		assert.Error(t, err)
	})

	t.Run("redis failure is an error", func(t *testing.T) {
		mr.SetError("LOADING")
		defer mr.SetError("")
		_, err := list.IsRevoked(ctx, "jti-2")
		assert.Error(t, err)
	})
}

func TestInMemoryRevocationList(t *testing.T) {
	list := NewInMemoryRevocationList()
	ctx := context.Background()

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Hour))
	require.NoError(t, list.Revoke(ctx, "jti-old", -time.Second))

	revoked, _ := list.IsRevoked(ctx, "jti-1")
	assert.True(t, revoked)
	revoked, _ = list.IsRevoked(ctx, "jti-old")
	assert.False(t, revoked)

	now := time.Now()
	require.NoError(t, list.InvalidateUser(ctx, "user-1", now, time.Hour))
	invalid, _ := list.IsUserInvalidated(ctx, "user-1", now)
	assert.True(t, invalid)
	invalid, _ = list.IsUserInvalidated(ctx, "user-1", now.Add(time.Second))
	assert.False(t, invalid)
}
