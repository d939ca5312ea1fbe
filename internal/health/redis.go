// Package health provides dependency checks behind the readiness probe.
package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker reports whether the optional Redis side cache is reachable.
// A failure is advisory: the volume resolver degrades to Postgres-only.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a checker over an existing client.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// HealthCheck sends a PING.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
