package domain

import (
	"context"
	"time"
)

// OrderbookCache stores the latest snapshot per platform and instrument.
type OrderbookCache interface {
	SetSnapshot(ctx context.Context, snap Snapshot) error
	GetSnapshot(ctx context.Context, platform, instrumentID string) (Snapshot, error)
}

// RateCache stores recently fetched exchange rates.
type RateCache interface {
	SetRate(ctx context.Context, rate ExchangeRate, ttl time.Duration) error
	GetRate(ctx context.Context, from, to string) (ExchangeRate, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub between the monitor and API consumers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter provides sliding-window rate limiting keyed by caller.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
