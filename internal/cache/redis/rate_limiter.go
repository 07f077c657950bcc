package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// RateLimiter implements domain.RateLimiter with a sliding window log kept in
// a Redis sorted set per key (score = request time in microseconds).
type RateLimiter struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{rdb: c.Underlying(), now: time.Now}
}

func rateLimitKey(key string) string {
	return "ratelimit:" + key
}

// Allow records a request for key and reports whether it is within limit
// requests per window. Rejected requests are removed again so they do not
// extend a client's penalty.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rk := rateLimitKey(key)
	now := rl.now().UnixMicro()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	pipe := rl.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rk, "-inf", strconv.FormatInt(now-window.Microseconds(), 10))
	pipe.ZAdd(ctx, rk, redis.Z{Score: float64(now), Member: member})
	card := pipe.ZCard(ctx, rk)
	pipe.PExpire(ctx, rk, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit allow %s: %w", key, err)
	}

	if card.Val() <= int64(limit) {
		return true, nil
	}
	_ = rl.rdb.ZRem(ctx, rk, member).Err()
	return false, nil
}

// Compile-time interface check.
var _ domain.RateLimiter = (*RateLimiter)(nil)
