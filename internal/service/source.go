// Package service wires the pure arbitrage evaluator to live orderbook and
// rate sources and to the persistence, cache, pub/sub, archive and alert
// sinks.
package service

import (
	"context"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// OrderbookSource is one venue's market data feed. Books are returned in the
// venue's own currency, sorted and validated.
type OrderbookSource interface {
	Name() string
	Currency() string
	GetOrderbook(ctx context.Context, instrumentID string) (domain.Orderbook, error)
}

// RateFetcher returns a live exchange rate.
type RateFetcher interface {
	Rate(ctx context.Context, from, to string) (domain.ExchangeRate, error)
}

// Notifier delivers operator alerts. *notify.Notifier satisfies it.
type Notifier interface {
	NotifyOpportunity(ctx context.Context, opp domain.Opportunity) error
	NotifyFallback(ctx context.Context, rate domain.ExchangeRate) error
	NotifyError(ctx context.Context, component string, err error) error
}
