package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appacc "github.com/ledger/backend/internal/application/accounting"
)

// setupTestRedis starts a miniredis server and a client connected to it
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisIdempotencyStoreWithClient(client, "")
	ctx := context.Background()

	t.Run("reserve is atomic per key", func(t *testing.T) {
		ok, err := store.Reserve(ctx, "create-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Reserve(ctx, "create-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, mr.Exists("ledger:idempotency:create-1"))
	})

	t.Run("pending key has no response", func(t *testing.T) {
		resp, err := store.Lookup(ctx, "create-1")
		require.NoError(t, err)
		assert.Nil(t, resp)
	})

	t.Run("completed key returns the response", func(t *testing.T) {
		require.NoError(t, store.Complete(ctx, "create-1", []byte(`{"id":"v-1"}`), time.Hour))

		resp, err := store.Lookup(ctx, "create-1")
		require.NoError(t, err)
		assert.Equal(t, `{"id":"v-1"}`, string(resp))
	})

	t.Run("ttl expires the key", func(t *testing.T) {
		require.NoError(t, store.Complete(ctx, "create-2", []byte("done"), time.Minute))
		mr.FastForward(2 * time.Minute)

		resp, err := store.Lookup(ctx, "create-2")
		require.NoError(t, err)
		assert.Nil(t, resp)
	})

	t.Run("release frees the key", func(t *testing.T) {
		_, err := store.Reserve(ctx, "create-3", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Release(ctx, "create-3"))

		ok, err := store.Reserve(ctx, "create-3", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("shared client is left open", func(t *testing.T) {
		require.NoError(t, store.Close())
		assert.NoError(t, client.Ping(ctx).Err())
	})
}

func TestIdempotencyStoreFactory_CreateStore(t *testing.T) {
	t.Run("uses redis when a client is configured", func(t *testing.T) {
		_, client := setupTestRedis(t)
		store, err := NewIdempotencyStoreFactory(client).CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &RedisIdempotencyStore{}, store)
	})

	t.Run("falls back to memory", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(nil).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("fails without fallback", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(nil, WithInMemoryFallback(false)).CreateStore()
		assert.Error(t, err)
	})
}

func TestRedisPostingLocker(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisPostingLocker(client)
	ctx := context.Background()

	release, err := locker.Obtain(ctx, "posting:v-1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("ledger:lock:posting:v-1"))

	t.Run("second holder is refused", func(t *testing.T) {
		_, err := locker.Obtain(ctx, "posting:v-1", 30*time.Second)
		assert.ErrorIs(t, err, appacc.ErrPostingLockNotObtained)
	})

	t.Run("other keys are independent", func(t *testing.T) {
		other, err := locker.Obtain(ctx, "posting:v-2", 30*time.Second)
		require.NoError(t, err)
		assert.NoError(t, other(ctx))
	})

	t.Run("release lets the next holder in", func(t *testing.T) {
		require.NoError(t, release(ctx))
		assert.NoError(t, release(ctx), "releasing twice is harmless")

		again, err := locker.Obtain(ctx, "posting:v-1", 30*time.Second)
		require.NoError(t, err)
		assert.NoError(t, again(ctx))
	})
}

// MockPolicyConfigStore is a mock implementation of PolicyConfigStore
type MockPolicyConfigStore struct {
	mock.Mock
}

func (m *MockPolicyConfigStore) GetConfig(ctx context.Context, companyID uuid.UUID) (accounting.ApprovalPolicyConfig, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(accounting.ApprovalPolicyConfig), args.Error(1)
}

func (m *MockPolicyConfigStore) SaveConfig(ctx context.Context, companyID uuid.UUID, cfg accounting.ApprovalPolicyConfig) error {
	args := m.Called(ctx, companyID, cfg)
	return args.Error(0)
}

func TestCachedPolicyConfigProvider(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	stored := accounting.ApprovalPolicyConfig{
		BaseCurrency:             "EUR",
		FinancialApprovalEnabled: true,
		FAApplyMode:              accounting.FAApplyAll,
		LockedThroughDate:        "2025-01-31",
		PolicyErrorMode:          accounting.PolicyErrorAggregate,
	}

	t.Run("reads through once and then serves from cache", func(t *testing.T) {
		_, client := setupTestRedis(t)
		store := new(MockPolicyConfigStore)
		store.On("GetConfig", mock.Anything, companyID).Return(stored, nil).Once()
		provider := NewCachedPolicyConfigProvider(store, client)

		for range 3 {
			cfg, err := provider.GetConfig(ctx, companyID)
			require.NoError(t, err)
			assert.Equal(t, stored, cfg)
		}
		store.AssertExpectations(t)
	})

	t.Run("save invalidates the cached copy", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		store := new(MockPolicyConfigStore)
		updated := stored
		updated.CustodyConfirmationEnabled = true
		store.On("GetConfig", mock.Anything, companyID).Return(stored, nil).Once()
		store.On("SaveConfig", mock.Anything, companyID, updated).Return(nil).Once()
		store.On("GetConfig", mock.Anything, companyID).Return(updated, nil).Once()
		provider := NewCachedPolicyConfigProvider(store, client)

		_, err := provider.GetConfig(ctx, companyID)
		require.NoError(t, err)
		require.NoError(t, provider.SaveConfig(ctx, companyID, updated))
		assert.False(t, mr.Exists(provider.cacheKey(companyID)))

		cfg, err := provider.GetConfig(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, accounting.ApprovalModeD, cfg.Mode())
		store.AssertExpectations(t)
	})

	t.Run("corrupted entry is reloaded", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		store := new(MockPolicyConfigStore)
		store.On("GetConfig", mock.Anything, companyID).Return(stored, nil).Once()
		provider := NewCachedPolicyConfigProvider(store, client)
		require.NoError(t, mr.Set(provider.cacheKey(companyID), "{not json"))

		cfg, err := provider.GetConfig(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, stored, cfg)
		store.AssertExpectations(t)
	})

	t.Run("redis outage falls back to the store", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		store := new(MockPolicyConfigStore)
		store.On("GetConfig", mock.Anything, companyID).Return(stored, nil).Twice()
		provider := NewCachedPolicyConfigProvider(store, client)
		mr.Close()

		for range 2 {
			cfg, err := provider.GetConfig(ctx, companyID)
			require.NoError(t, err)
			assert.Equal(t, stored, cfg)
		}
		store.AssertExpectations(t)
	})

	t.Run("store errors are returned", func(t *testing.T) {
		_, client := setupTestRedis(t)
		store := new(MockPolicyConfigStore)
		boom := errors.New("db down")
		store.On("GetConfig", mock.Anything, companyID).Return(accounting.ApprovalPolicyConfig{}, boom)
		provider := NewCachedPolicyConfigProvider(store, client)

		_, err := provider.GetConfig(ctx, companyID)
		assert.ErrorIs(t, err, boom)
	})
}
