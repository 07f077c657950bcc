package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/arbitrage"
	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// ArbChannel is the signal bus channel opportunities are published on.
const ArbChannel = "arb"

// ArbConfig holds the evaluation and alerting parameters.
type ArbConfig struct {
	// SettlementCurrency is the currency every book is converted into.
	SettlementCurrency string
	// MinProfitPct is the smallest ProfitPercentage that triggers an alert.
	MinProfitPct float64
}

// Sinks are the optional destinations of recorded evaluations. Any nil field
// is skipped.
type Sinks struct {
	Store    domain.OpportunityStore
	Bus      domain.SignalBus
	Audit    domain.AuditStore
	Notifier Notifier
	Archiver domain.Archiver
}

// ArbService evaluates markets and records the results.
type ArbService struct {
	quotes *QuoteService
	rates  *RateService
	sinks  Sinks
	cfg    ArbConfig
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewArbService creates an ArbService.
func NewArbService(quotes *QuoteService, rates *RateService, sinks Sinks, cfg ArbConfig, logger *slog.Logger) *ArbService {
	if cfg.SettlementCurrency == "" {
		cfg.SettlementCurrency = "USD"
	}
	return &ArbService{
		quotes: quotes,
		rates:  rates,
		sinks:  sinks,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "arb_service")),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// EvaluateMarket fetches both books, converts them into the settlement
// currency and evaluates both directions. The result is not recorded.
func (s *ArbService) EvaluateMarket(ctx context.Context, market domain.Market) (domain.Evaluation, error) {
	snapA, snapB, err := s.quotes.Quotes(ctx, market)
	if err != nil {
		return domain.Evaluation{}, err
	}

	rateA := s.rates.Rate(ctx, snapA.Currency, s.cfg.SettlementCurrency)
	rateB := s.rates.Rate(ctx, snapB.Currency, s.cfg.SettlementCurrency)

	opps, err := arbitrage.Evaluate(market.ID,
		arbitrage.Quote{Label: snapA.Platform, Book: snapA.Book, Rate: rateA.Rate},
		arbitrage.Quote{Label: snapB.Platform, Book: snapB.Book, Rate: rateB.Rate},
	)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("arb_service: evaluate %s: %w", market.ID, err)
	}

	fallback := map[string]bool{
		snapA.Platform: rateA.Fallback,
		snapB.Platform: rateB.Fallback,
	}
	now := s.now().UTC()
	for i := range opps {
		opps[i].ID = s.newID()
		opps[i].DetectedAt = now
		opps[i].RateFallback = fallback[opps[i].BuyPlatform] || fallback[opps[i].SellPlatform]
	}

	eval := domain.Evaluation{
		MarketID:      market.ID,
		Snapshots:     []domain.Snapshot{snapA, snapB},
		Rates:         []domain.ExchangeRate{rateA, rateB},
		Opportunities: opps,
		EvaluatedAt:   now,
	}
	if best, ok := arbitrage.SelectBest(opps); ok {
		eval.Best = &best
	}

	attrs := []any{
		slog.String("market_id", market.ID),
		slog.Int("opportunities", len(opps)),
	}
	if eval.Best != nil {
		attrs = append(attrs,
			slog.String("best", eval.Best.Direction()),
			slog.String("profit_pct", eval.Best.ProfitPercentage.StringFixed(2)),
		)
	}
	if eval.UsedFallbackRate() {
		s.logger.WarnContext(ctx, "arb_service: evaluated with fallback rate", attrs...)
	} else {
		s.logger.InfoContext(ctx, "arb_service: evaluated market", attrs...)
	}

	return eval, nil
}

// Record sends eval to every configured sink. Sinks are independent: a
// failure in one does not stop the others, and all failures are returned
// joined.
func (s *ArbService) Record(ctx context.Context, eval domain.Evaluation) error {
	var errs []error

	if s.sinks.Store != nil && len(eval.Opportunities) > 0 {
		if err := s.sinks.Store.InsertBatch(ctx, eval.Opportunities); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if s.sinks.Bus != nil {
		for _, opp := range eval.Opportunities {
			payload, err := json.Marshal(opp)
			if err != nil {
				errs = append(errs, fmt.Errorf("marshal %s: %w", opp.ID, err))
				continue
			}
			if err := s.sinks.Bus.Publish(ctx, ArbChannel, payload); err != nil {
				errs = append(errs, fmt.Errorf("publish: %w", err))
				break
			}
		}
	}

	if s.sinks.Audit != nil {
		detail := map[string]any{
			"market_id":     eval.MarketID,
			"opportunities": len(eval.Opportunities),
			"rate_fallback": eval.UsedFallbackRate(),
		}
		if eval.Best != nil {
			detail["best_id"] = eval.Best.ID
			detail["best_profit_pct"] = eval.Best.ProfitPercentage.String()
		}
		if err := s.sinks.Audit.Log(ctx, "evaluation", detail); err != nil {
			errs = append(errs, fmt.Errorf("audit: %w", err))
		}
	}

	if s.sinks.Notifier != nil {
		minPct := decimal.NewFromFloat(s.cfg.MinProfitPct)
		for _, opp := range eval.Opportunities {
			if !opp.IsProfitable || opp.ProfitPercentage.LessThan(minPct) {
				continue
			}
			if err := s.sinks.Notifier.NotifyOpportunity(ctx, opp); err != nil {
				errs = append(errs, fmt.Errorf("notify: %w", err))
			}
		}
		for _, rate := range eval.Rates {
			if !rate.Fallback {
				continue
			}
			if err := s.sinks.Notifier.NotifyFallback(ctx, rate); err != nil {
				errs = append(errs, fmt.Errorf("notify fallback: %w", err))
			}
		}
	}

	if s.sinks.Archiver != nil {
		key, err := s.sinks.Archiver.ArchiveEvaluation(ctx, eval)
		if err != nil {
			errs = append(errs, fmt.Errorf("archive: %w", err))
		} else {
			s.logger.DebugContext(ctx, "arb_service: archived evaluation",
				slog.String("market_id", eval.MarketID),
				slog.String("key", key),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("arb_service: record %s: %w", eval.MarketID, errors.Join(errs...))
	}
	return nil
}

// ListRecent returns the newest stored opportunities. Without a store it
// returns an empty list.
func (s *ArbService) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if s.sinks.Store == nil {
		return []domain.Opportunity{}, nil
	}
	opps, err := s.sinks.Store.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("arb_service: list recent: %w", err)
	}
	return opps, nil
}

// ListByMarket returns stored opportunities for one market.
func (s *ArbService) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Opportunity, error) {
	if s.sinks.Store == nil {
		return []domain.Opportunity{}, nil
	}
	opps, err := s.sinks.Store.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("arb_service: list market %s: %w", marketID, err)
	}
	return opps, nil
}
