package volume

import (
	"context"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

// Redis layer defaults.
const (
	// DefaultL1TTL is the lifetime of a record in the Redis side cache.
	// Short on purpose: Redis only absorbs hot-key reads between runs, the
	// 30-day freshness decision always happens against the record payload.
	DefaultL1TTL = time.Hour
	// DefaultLockTTL bounds how long a per-key fetch lock can be held.
	DefaultLockTTL = 15 * time.Second

	recordKeyPrefix = "ktier:vol:"
	lockKeyPrefix   = "ktier:lock:"
)

// RedisCache is a best-effort side cache in front of the persistent store,
// plus a per-key advisory lock used to single-flight external volume calls
// for the same keyword across concurrent runs. Every failure path degrades
// to "not cached" / "lock not held"; Redis being down never blocks a run.
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
	logger  *slog.Logger
}

// NewRedisCache creates a RedisCache over an existing client.
func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client:  client,
		ttl:     DefaultL1TTL,
		lockTTL: DefaultLockTTL,
		logger:  logger,
	}
}

// Get returns the cached record for key, or nil when absent, corrupt, or
// Redis is unavailable. A corrupt value is deleted so the next read falls
// through to the persistent store cleanly.
func (c *RedisCache) Get(ctx context.Context, key string) *CacheRecord {
	raw, err := c.client.Get(ctx, recordKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.logger.Warn("redis cache read failed", "key", key, "error", err)
		return nil
	}

	var rec CacheRecord
	if err := cbor.Unmarshal(raw, &rec); err != nil {
		c.logger.Warn("redis cache value corrupt, dropping", "key", key, "error", err)
		c.client.Del(ctx, recordKeyPrefix+key)
		return nil
	}
	return &rec
}

// Set stores records best-effort; encode or write failures are logged and
// ignored.
func (c *RedisCache) Set(ctx context.Context, records []*CacheRecord) {
	for _, rec := range records {
		raw, err := cbor.Marshal(rec)
		if err != nil {
			c.logger.Warn("failed to encode cache record", "text", rec.Text, "error", err)
			continue
		}
		if err := c.client.Set(ctx, recordKeyPrefix+rec.Key(), raw, c.ttl).Err(); err != nil {
			c.logger.Warn("redis cache write failed", "key", rec.Key(), "error", err)
			continue
		}
	}
}

// TryLock attempts to take the per-key fetch lock for the given keys and
// returns a release function. The lock is advisory: failing to take it (or
// Redis being down) returns ok=false and the caller proceeds anyway, since
// a duplicate external call is preferable to a stalled run.
func (c *RedisCache) TryLock(ctx context.Context, keys []string) (release func(), ok bool) {
	var held []string
	for _, key := range keys {
		acquired, err := c.client.SetNX(ctx, lockKeyPrefix+key, 1, c.lockTTL).Result()
		if err != nil {
			c.logger.Warn("redis lock unavailable", "key", key, "error", err)
			break
		}
		if !acquired {
			break
		}
		held = append(held, key)
	}

	release = func() {
		for _, key := range held {
			if err := c.client.Del(context.WithoutCancel(ctx), lockKeyPrefix+key).Err(); err != nil {
				c.logger.Warn("failed to release fetch lock", "key", key, "error", err)
			}
		}
	}
	return release, len(held) == len(keys)
}
