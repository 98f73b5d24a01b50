package historysvc

import (
	"context"
	stderrors "errors"
	"time"

	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const userExistsPrefix = "user:exists:"

// UserCache remembers which user ids are known to exist. Only positive answers
// are cached. Redis failures are logged and treated as a miss.
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

func NewUserCache(client *redis.Client, ttl time.Duration, log logger.Logger) *UserCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UserCache{client: client, ttl: ttl, log: log}
}

func userExistsKey(id string) string {
	return userExistsPrefix + id
}

// Known reports whether id is cached as an existing user.
func (c *UserCache) Known(ctx context.Context, id string) bool {
	if c == nil || c.client == nil {
		return false
	}
	err := c.client.Get(ctx, userExistsKey(id)).Err()
	switch {
	case err == nil:
		metrics.UserCacheLookups.WithLabelValues("hit").Inc()
		return true
	case stderrors.Is(err, redis.Nil):
		metrics.UserCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.UserCacheLookups.WithLabelValues("error").Inc()
		c.log.Warn("user cache lookup failed", map[string]interface{}{"userId": id, "error": err})
	}
	return false
}

// Remember caches id as an existing user for the configured TTL.
func (c *UserCache) Remember(ctx context.Context, id string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, userExistsKey(id), "1", c.ttl).Err(); err != nil {
		c.log.Warn("user cache write failed", map[string]interface{}{"userId": id, "error": err})
	}
}
