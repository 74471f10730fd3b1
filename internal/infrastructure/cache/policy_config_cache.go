package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultPolicyConfigTTL = 5 * time.Minute

// PolicyConfigStore is the durable source the cache reads through to
type PolicyConfigStore interface {
	GetConfig(ctx context.Context, companyID uuid.UUID) (accounting.ApprovalPolicyConfig, error)
	SaveConfig(ctx context.Context, companyID uuid.UUID, cfg accounting.ApprovalPolicyConfig) error
}

// CachedPolicyConfigProvider is a read-through Redis cache in front of the policy config table.
// Redis failures degrade to reading the store directly.
type CachedPolicyConfigProvider struct {
	store  PolicyConfigStore
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// PolicyConfigCacheOption is a functional option for configuring the cache
type PolicyConfigCacheOption func(*CachedPolicyConfigProvider)

// WithPolicyConfigTTL sets how long a cached config lives
func WithPolicyConfigTTL(ttl time.Duration) PolicyConfigCacheOption {
	return func(c *CachedPolicyConfigProvider) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPolicyConfigLogger sets the logger for the cache
func WithPolicyConfigLogger(logger *zap.Logger) PolicyConfigCacheOption {
	return func(c *CachedPolicyConfigProvider) {
		c.logger = logger
	}
}

// NewCachedPolicyConfigProvider wraps store with a Redis cache. The caller owns client.
func NewCachedPolicyConfigProvider(store PolicyConfigStore, client *redis.Client, opts ...PolicyConfigCacheOption) *CachedPolicyConfigProvider {
	c := &CachedPolicyConfigProvider{
		store:  store,
		client: client,
		ttl:    defaultPolicyConfigTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedPolicyConfigProvider) cacheKey(companyID uuid.UUID) string {
	return fmt.Sprintf("ledger:policy_config:%s", companyID.String())
}

// GetConfig returns the cached config, loading and caching it on a miss
func (c *CachedPolicyConfigProvider) GetConfig(ctx context.Context, companyID uuid.UUID) (accounting.ApprovalPolicyConfig, error) {
	key := c.cacheKey(companyID)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cfg accounting.ApprovalPolicyConfig
		if err := json.Unmarshal(data, &cfg); err == nil {
			return cfg, nil
		}
		c.logger.Warn("Discarding corrupted policy config cache entry",
			zap.String("company_id", companyID.String()))
		_ = c.client.Del(ctx, key)
	case errors.Is(err, redis.Nil):
		c.logger.Debug("Cache miss for policy config", zap.String("company_id", companyID.String()))
	default:
		c.logger.Warn("Policy config cache unavailable, reading from store",
			zap.String("company_id", companyID.String()),
			zap.Error(err))
	}

	cfg, err := c.store.GetConfig(ctx, companyID)
	if err != nil {
		return accounting.ApprovalPolicyConfig{}, err
	}

	if data, err := json.Marshal(cfg); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache policy config",
				zap.String("company_id", companyID.String()),
				zap.Error(err))
		}
	}
	return cfg, nil
}

// SaveConfig writes through to the store and drops the cached copy
func (c *CachedPolicyConfigProvider) SaveConfig(ctx context.Context, companyID uuid.UUID, cfg accounting.ApprovalPolicyConfig) error {
	if err := c.store.SaveConfig(ctx, companyID, cfg); err != nil {
		return err
	}
	return c.Invalidate(ctx, companyID)
}

// Invalidate removes a company's cached config
func (c *CachedPolicyConfigProvider) Invalidate(ctx context.Context, companyID uuid.UUID) error {
	if err := c.client.Del(ctx, c.cacheKey(companyID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate policy config cache: %w", err)
	}
	return nil
}

var _ accounting.AccountingPolicyConfigProvider = (*CachedPolicyConfigProvider)(nil)
