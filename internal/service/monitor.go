package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// MonitorConfig controls the scan loop.
type MonitorConfig struct {
	Interval    time.Duration
	Concurrency int
	// LockTTL bounds how long one replica may hold a market. Defaults to the
	// interval.
	LockTTL time.Duration
	// Record sends each evaluation to the sinks. Off for one-shot scans.
	Record bool
}

// Monitor scans every configured market on a fixed interval.
type Monitor struct {
	arb     *ArbService
	markets *MarketService
	locks   domain.LockManager
	cfg     MonitorConfig
	logger  *slog.Logger
}

// NewMonitor creates a Monitor. locks may be nil for single-replica use.
func NewMonitor(arb *ArbService, markets *MarketService, locks domain.LockManager, cfg MonitorConfig, logger *slog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.Interval
	}
	return &Monitor{
		arb:     arb,
		markets: markets,
		locks:   locks,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "monitor")),
	}
}

// Run scans immediately and then once per interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.InfoContext(ctx, "monitor: starting",
		slog.Duration("interval", m.cfg.Interval),
		slog.Int("concurrency", m.cfg.Concurrency),
		slog.Int("markets", len(m.markets.List(ctx))),
	)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		m.ScanOnce(ctx)

		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "monitor: stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ScanOnce evaluates every market with at most Concurrency in flight and
// returns the evaluations that succeeded. Order is not defined.
func (m *Monitor) ScanOnce(ctx context.Context) []domain.Evaluation {
	start := time.Now()

	var (
		mu      sync.Mutex
		results []domain.Evaluation
		failed  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)

	for _, market := range m.markets.List(ctx) {
		g.Go(func() error {
			eval, ok := m.scanMarket(gctx, market)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				results = append(results, eval)
			} else {
				failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	m.logger.InfoContext(ctx, "monitor: scan complete",
		slog.Int("evaluated", len(results)),
		slog.Int("skipped", failed),
		slog.Duration("elapsed", time.Since(start)),
	)
	return results
}

func (m *Monitor) scanMarket(ctx context.Context, market domain.Market) (domain.Evaluation, bool) {
	if m.locks != nil {
		unlock, err := m.locks.Acquire(ctx, "scan:"+market.ID, m.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				m.logger.DebugContext(ctx, "monitor: market locked by another scanner",
					slog.String("market_id", market.ID),
				)
			} else {
				m.logger.WarnContext(ctx, "monitor: acquire lock failed",
					slog.String("market_id", market.ID),
					slog.String("error", err.Error()),
				)
			}
			return domain.Evaluation{}, false
		}
		defer unlock()
	}

	eval, err := m.arb.EvaluateMarket(ctx, market)
	if err != nil {
		m.logger.WarnContext(ctx, "monitor: evaluate failed",
			slog.String("market_id", market.ID),
			slog.String("error", err.Error()),
		)
		if n := m.arb.sinks.Notifier; n != nil && m.cfg.Record && ctx.Err() == nil {
			_ = n.NotifyError(ctx, "monitor", err)
		}
		return domain.Evaluation{}, false
	}

	if m.cfg.Record {
		if err := m.arb.Record(ctx, eval); err != nil {
			m.logger.WarnContext(ctx, "monitor: record failed",
				slog.String("market_id", market.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return eval, true
}
