package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// RateCache implements domain.RateCache using Redis hashes.
// Each pair is stored at "fx:{FROM}:{TO}" with fields "rate", "source" and
// "ts" (unix nanos). Entries expire after the TTL passed to SetRate.
type RateCache struct {
	rdb *redis.Client
}

// NewRateCache creates a RateCache backed by the given Client.
func NewRateCache(c *Client) *RateCache {
	return &RateCache{rdb: c.Underlying()}
}

func rateKey(from, to string) string {
	return "fx:" + strings.ToUpper(from) + ":" + strings.ToUpper(to)
}

// SetRate stores a live rate. Fallback rates are never cached so the next
// lookup retries upstream.
func (rc *RateCache) SetRate(ctx context.Context, rate domain.ExchangeRate, ttl time.Duration) error {
	if rate.Fallback {
		return nil
	}
	if err := rate.Validate(); err != nil {
		return fmt.Errorf("redis: set rate: %w", err)
	}

	key := rateKey(rate.From, rate.To)
	pipe := rc.rdb.TxPipeline()
	pipe.HSet(ctx, key, encodeRate(rate))
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set rate %s: %w", key, err)
	}
	return nil
}

// GetRate returns the cached rate or domain.ErrNotFound.
func (rc *RateCache) GetRate(ctx context.Context, from, to string) (domain.ExchangeRate, error) {
	key := rateKey(from, to)
	vals, err := rc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("redis: get rate %s: %w", key, err)
	}
	if len(vals) == 0 {
		return domain.ExchangeRate{}, domain.ErrNotFound
	}
	rate, err := decodeRate(strings.ToUpper(from), strings.ToUpper(to), vals)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("redis: get rate %s: %w", key, err)
	}
	return rate, nil
}

func encodeRate(rate domain.ExchangeRate) map[string]interface{} {
	return map[string]interface{}{
		"rate":   strconv.FormatFloat(rate.Rate, 'f', -1, 64),
		"source": rate.Source,
		"ts":     strconv.FormatInt(rate.FetchedAt.UnixNano(), 10),
	}
}

func decodeRate(from, to string, vals map[string]string) (domain.ExchangeRate, error) {
	rateStr, ok := vals["rate"]
	if !ok {
		return domain.ExchangeRate{}, domain.ErrNotFound
	}
	r, err := strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("parse rate: %w", err)
	}
	if err := domain.ValidateRate(r); err != nil {
		return domain.ExchangeRate{}, err
	}

	out := domain.ExchangeRate{From: from, To: to, Rate: r, Source: vals["source"]}
	if tsNano, err := strconv.ParseInt(vals["ts"], 10, 64); err == nil {
		out.FetchedAt = time.Unix(0, tsNano).UTC()
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.RateCache = (*RateCache)(nil)
