package actioncheck

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChecker implements Checker using Redis sorted sets keyed by
// "actioncheck:{ip}:{action}", scored by Unix-nanosecond occurrence time.
// Grounded on the pack's two Redis-backed rate-limit stores
// (sangkips-vehicle-telematics/pkg/ratelimit/redis_limiter.go,
// cyph3rk-go_fronteira/middleware/ratelimit/infra/stats_redis.go), both of
// which drive go-redis/v9 directly rather than through an ORM.
type RedisChecker struct {
	client *redis.Client
	prefix string
}

// NewRedisChecker wraps an existing go-redis client. prefix namespaces this
// checker's keys against other users of the same Redis instance.
func NewRedisChecker(client *redis.Client, prefix string) *RedisChecker {
	if prefix == "" {
		prefix = "actioncheck"
	}
	return &RedisChecker{client: client, prefix: prefix}
}

func (r *RedisChecker) setKey(ip, action string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, ip, action)
}

// RecordAction adds the current time to the ip/action sorted set and trims
// entries older than 24 hours so the set does not grow unboundedly for a
// repeatedly-polled IP.
func (r *RedisChecker) RecordAction(ctx context.Context, ip, action string) error {
	key := r.setKey(ip, action)
	now := time.Now()

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", now.Add(-24*time.Hour).UnixNano()))
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record action in redis: %w", err)
	}
	return nil
}

// CheckRecentAction reports whether ip/action has any member scored within
// the last `within` duration.
func (r *RedisChecker) CheckRecentAction(ctx context.Context, ip, action string, within time.Duration) (bool, error) {
	key := r.setKey(ip, action)
	cutoff := time.Now().Add(-within).UnixNano()

	count, err := r.client.ZCount(ctx, key, fmt.Sprintf("%d", cutoff), "+inf").Result()
	if err != nil {
		return false, fmt.Errorf("check recent action in redis: %w", err)
	}
	return count > 0, nil
}

// Close closes the underlying Redis client.
func (r *RedisChecker) Close() error {
	return r.client.Close()
}
