package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"tglink/internal/shared/logger"
	"tglink/internal/shared/types"
)

const (
	peerCachePrefix = "tglink:peer:"
	notFoundMarker  = "-"
)

// RedisCache caches the answers of another Lookuper. Misses are cached too,
// for a tenth of the TTL. Redis failures are logged and bypassed.
type RedisCache struct {
	client *redis.Client
	next   Lookuper
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, next Lookuper, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, next: next, ttl: ttl}
}

func (c *RedisCache) Lookup(ctx context.Context, name string) (types.PeerID, error) {
	l := logger.WithComponent("Directory/Redis")
	key := peerCachePrefix + NormalizeName(name)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if cached == notFoundMarker {
			return types.PeerID{}, ErrNotFound
		}
		var id types.PeerID
		if jsonErr := json.Unmarshal([]byte(cached), &id); jsonErr == nil {
			return id, nil
		}
		l.Warn().Str("key", key).Msg("Discarding malformed cache entry.")
	case errors.Is(err, redis.Nil):
	default:
		l.Warn().Err(err).Str("key", key).Msg("Cache read failed.")
	}

	id, err := c.next.Lookup(ctx, name)
	switch {
	case err == nil:
		data, _ := json.Marshal(id)
		c.store(ctx, key, string(data), c.ttl)
	case errors.Is(err, ErrNotFound):
		c.store(ctx, key, notFoundMarker, c.ttl/10)
	}
	return id, err
}

func (c *RedisCache) store(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		l := logger.WithComponent("Directory/Redis")
		l.Warn().Err(err).Str("key", key).Msg("Cache write failed.")
	}
}

// Invalidate drops the cached answer for name.
func (c *RedisCache) Invalidate(ctx context.Context, name string) error {
	return c.client.Del(ctx, peerCachePrefix+NormalizeName(name)).Err()
}
