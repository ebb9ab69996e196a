package quota

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// limitCacheKeyPrefix namespaces effective-limit keys in the shared cache.
const limitCacheKeyPrefix = "orgquota:limit:"

// unboundedCacheValue encodes the unbounded sentinel in the cache.
const unboundedCacheValue = "unbounded"

// LimitCache caches effective limits keyed by (org, quota type). Get misses
// on any cache failure; Invalidate must report failures because a missed
// invalidation would serve a stale limit until the TTL expires.
type LimitCache interface {
	Get(ctx context.Context, orgID uint64, quotaType string) (Limit, bool)
	Set(ctx context.Context, orgID uint64, quotaType string, limit Limit)
	Invalidate(ctx context.Context, orgID uint64, quotaType string) error
}

// RedisLimitCache stores effective limits in Redis with a TTL backstop.
type RedisLimitCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLimitCache builds a Redis-backed limit cache. A non-positive TTL
// falls back to five minutes.
func NewRedisLimitCache(client *redis.Client, ttl time.Duration) *RedisLimitCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLimitCache{client: client, ttl: ttl}
}

// Get returns the cached limit for the key, missing on any failure.
func (c *RedisLimitCache) Get(ctx context.Context, orgID uint64, quotaType string) (Limit, bool) {
	if c == nil || c.client == nil {
		return Limit{}, false
	}
	raw, errGet := c.client.Get(ctx, limitCacheKey(orgID, quotaType)).Result()
	if errGet != nil {
		if errGet != redis.Nil {
			log.WithError(errGet).Debug("limit cache read failed")
		}
		return Limit{}, false
	}
	return decodeCachedLimit(raw)
}

// Set stores the limit; failures are logged and otherwise ignored.
func (c *RedisLimitCache) Set(ctx context.Context, orgID uint64, quotaType string, limit Limit) {
	if c == nil || c.client == nil {
		return
	}
	if errSet := c.client.Set(ctx, limitCacheKey(orgID, quotaType), encodeCachedLimit(limit), c.ttl).Err(); errSet != nil {
		log.WithError(errSet).Debug("limit cache write failed")
	}
}

// Invalidate removes the cached limit for the key.
func (c *RedisLimitCache) Invalidate(ctx context.Context, orgID uint64, quotaType string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if errDel := c.client.Del(ctx, limitCacheKey(orgID, quotaType)).Err(); errDel != nil {
		return storeFailure("invalidate limit cache", errDel)
	}
	return nil
}

// NoopLimitCache disables caching; every lookup goes to the database.
type NoopLimitCache struct{}

// Get always misses.
func (NoopLimitCache) Get(context.Context, uint64, string) (Limit, bool) { return Limit{}, false }

// Set discards the value.
func (NoopLimitCache) Set(context.Context, uint64, string, Limit) {}

// Invalidate has nothing to remove.
func (NoopLimitCache) Invalidate(context.Context, uint64, string) error { return nil }

// limitCacheKey builds the cache key for one (org, quota type) pair.
func limitCacheKey(orgID uint64, quotaType string) string {
	return fmt.Sprintf("%s%d:%s", limitCacheKeyPrefix, orgID, strings.TrimSpace(quotaType))
}

// encodeCachedLimit renders a limit as a cache value.
func encodeCachedLimit(limit Limit) string {
	if limit.Unbounded {
		return unboundedCacheValue
	}
	return strconv.FormatInt(limit.Value, 10)
}

// decodeCachedLimit parses a cache value, missing on garbage.
func decodeCachedLimit(raw string) (Limit, bool) {
	raw = strings.TrimSpace(raw)
	if raw == unboundedCacheValue {
		return Unlimited(), true
	}
	value, errParse := strconv.ParseInt(raw, 10, 64)
	if errParse != nil || value < 0 {
		return Limit{}, false
	}
	return Bounded(value), true
}
