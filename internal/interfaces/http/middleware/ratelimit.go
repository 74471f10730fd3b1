package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// RateLimitDisabled turns rate limiting off when used as the configured rate
const RateLimitDisabled = "off"

// NewRateLimiter builds a per-client limiter for a formatted rate such as "300-M".
// Counters live in Redis when a client is given so every replica shares them.
// Returns nil when rate is "off".
func NewRateLimiter(rate string, client *redis.Client) (*limiter.Limiter, error) {
	if rate == RateLimitDisabled {
		return nil, nil
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	var store limiter.Store
	if client != nil {
		store, err = redisstore.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "ledger:ratelimit"})
		if err != nil {
			return nil, fmt.Errorf("create rate limit store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}
	return limiter.New(store, parsed), nil
}

// RateLimit rejects clients over their request budget with 429.
// A failing store lets the request through.
func RateLimit(instance *limiter.Limiter) gin.HandlerFunc {
	if instance == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		ctx, err := instance.Get(c.Request.Context(), ip)
		if err != nil {
			logger.L(c.Request.Context()).Error("Failed to get rate limit context", zap.String("ip", ip), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))

		if ctx.Reached {
			logger.L(c.Request.Context()).Warn("Rate limit exceeded",
				zap.String("ip", ip), zap.Int64("limit", ctx.Limit))
			abortWithError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please try again later", "POLICY")
			return
		}
		c.Next()
	}
}
