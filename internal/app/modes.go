package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/server"
	"github.com/alanyoungcy/arbwatch/internal/server/handler"
	"github.com/alanyoungcy/arbwatch/internal/server/ws"
	"github.com/alanyoungcy/arbwatch/internal/service"
)

// shutdownTimeout bounds the HTTP graceful shutdown.
const shutdownTimeout = 5 * time.Second

// services builds the service layer shared by every mode.
func (a *App) services(deps *Dependencies) (*service.ArbService, *service.MarketService) {
	markets := make([]domain.Market, 0, len(a.cfg.Markets))
	for _, m := range a.cfg.Markets {
		markets = append(markets, domain.Market{
			ID:          m.ID,
			Title:       m.Title,
			InstrumentA: m.InstrumentA,
			InstrumentB: m.InstrumentB,
		})
	}

	quotes := service.NewQuoteService(deps.SourceA, deps.SourceB, deps.BookCache, a.logger)
	rates := service.NewRateService(deps.Rates, deps.RateCache, service.RateConfig{
		Fallback: a.cfg.FXRate.Fallback,
		CacheTTL: a.cfg.FXRate.CacheTTL.Duration,
	}, a.logger)

	sinks := service.Sinks{
		Store:    deps.OpportunityStore,
		Bus:      deps.SignalBus,
		Audit:    deps.AuditStore,
		Archiver: deps.Archiver,
	}
	if deps.Notifier.Enabled() {
		sinks.Notifier = deps.Notifier
	}

	arb := service.NewArbService(quotes, rates, sinks, service.ArbConfig{
		SettlementCurrency: strings.ToUpper(a.cfg.SettlementCurrency),
		MinProfitPct:       a.cfg.Monitor.MinProfitPct,
	}, a.logger)

	return arb, service.NewMarketService(markets)
}

func (a *App) newMonitor(deps *Dependencies, arb *service.ArbService, markets *service.MarketService, record bool) *service.Monitor {
	return service.NewMonitor(arb, markets, deps.LockManager, service.MonitorConfig{
		Interval:    a.cfg.Monitor.Interval.Duration,
		Concurrency: a.cfg.Monitor.Concurrency,
		LockTTL:     a.cfg.Monitor.LockTTL.Duration,
		Record:      record,
	}, a.logger)
}

// ScanMode evaluates every market once and writes the evaluations to the
// app's output as a JSON array ordered by market ID. Nothing is recorded. It
// fails only when no market could be evaluated.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	arb, markets := a.services(deps)
	evals := a.newMonitor(deps, arb, markets, false).ScanOnce(ctx)
	sort.Slice(evals, func(i, j int) bool { return evals[i].MarketID < evals[j].MarketID })

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(evals); err != nil {
		return fmt.Errorf("app: scan: write output: %w", err)
	}

	total := len(markets.List(ctx))
	if total > 0 && len(evals) == 0 {
		return fmt.Errorf("app: scan: all %d markets failed", total)
	}
	return nil
}

// MonitorMode runs the scan loop with every configured sink, plus the HTTP
// API when server.enabled is set.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Bool("postgres", deps.OpportunityStore != nil),
		slog.Bool("redis", deps.SignalBus != nil),
		slog.Bool("s3", deps.Archiver != nil),
		slog.Bool("notify", deps.Notifier.Enabled()),
	)

	g, ctx := errgroup.WithContext(ctx)

	arb, markets := a.services(deps)
	monitor := a.newMonitor(deps, arb, markets, true)
	g.Go(func() error {
		return monitor.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, arb, markets)
	}

	return g.Wait()
}

// ServerMode serves the API without scanning. Live evaluations are still
// available per request.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	arb, markets := a.services(deps)
	a.startHTTPServer(ctx, g, deps, arb, markets)
	return g.Wait()
}

func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	arb *service.ArbService,
	markets *service.MarketService,
) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Checks, a.logger),
		Status: &handler.StatusHandler{
			Mode:               a.cfg.Mode,
			SettlementCurrency: a.cfg.SettlementCurrency,
			PlatformA:          deps.SourceA.Name(),
			PlatformB:          deps.SourceB.Name(),
			StartedAt:          time.Now().UTC(),
		},
		Markets:       handler.NewMarketHandler(markets, arb, a.logger),
		Opportunities: handler.NewOpportunityHandler(arb, a.logger),
		Evaluate:      handler.NewEvaluateHandler(a.logger),
	}

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, ws.Config{
			Channels: []string{service.ArbChannel},
			Mode:     a.cfg.Mode,
		}, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Addr:        a.cfg.Server.Addr,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
		Limiter:     deps.RateLimiter,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
