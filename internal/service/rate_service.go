package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// FallbackSource marks a rate taken from configuration.
const FallbackSource = "fallback"

// RateConfig holds the rate lookup settings.
type RateConfig struct {
	// Fallback maps "FROM:TO" to the constant used when no live rate is
	// available. The inverse pair is derived when only one direction is set.
	Fallback map[string]float64
	CacheTTL time.Duration
}

// RateService resolves exchange rates: identity, then cache, then the live
// fetcher, then the configured fallback.
type RateService struct {
	fetcher RateFetcher
	cache   domain.RateCache
	cfg     RateConfig
	logger  *slog.Logger
	group   singleflight.Group
}

// NewRateService creates a RateService. fetcher and cache may be nil.
func NewRateService(fetcher RateFetcher, cache domain.RateCache, cfg RateConfig, logger *slog.Logger) *RateService {
	fallback := make(map[string]float64, len(cfg.Fallback))
	for k, v := range cfg.Fallback {
		fallback[strings.ToUpper(k)] = v
	}
	cfg.Fallback = fallback
	return &RateService{
		fetcher: fetcher,
		cache:   cache,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "rate_service")),
	}
}

// Rate never fails. When neither a live rate nor a fallback exists the
// returned rate is 0 with Fallback set, which ConvertOrderbook rejects with
// domain.ErrInvalidRate.
func (s *RateService) Rate(ctx context.Context, from, to string) domain.ExchangeRate {
	from, to = strings.ToUpper(strings.TrimSpace(from)), strings.ToUpper(strings.TrimSpace(to))
	if domain.SameCurrency(from, to) {
		return domain.Identity(to)
	}

	if s.cache != nil {
		rate, err := s.cache.GetRate(ctx, from, to)
		if err == nil {
			return rate
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "rate_service: cache lookup failed",
				slog.String("pair", from+":"+to),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.fetcher != nil {
		v, err, _ := s.group.Do(from+":"+to, func() (any, error) {
			return s.fetcher.Rate(ctx, from, to)
		})
		if err == nil {
			rate := v.(domain.ExchangeRate)
			s.store(ctx, rate)
			return rate
		}
		s.logger.WarnContext(ctx, "rate_service: live rate unavailable",
			slog.String("pair", from+":"+to),
			slog.String("error", err.Error()),
		)
	}

	return s.fallback(ctx, from, to)
}

func (s *RateService) store(ctx context.Context, rate domain.ExchangeRate) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetRate(ctx, rate, s.cfg.CacheTTL); err != nil {
		s.logger.WarnContext(ctx, "rate_service: cache store failed",
			slog.String("pair", rate.From+":"+rate.To),
			slog.String("error", err.Error()),
		)
	}
}

func (s *RateService) fallback(ctx context.Context, from, to string) domain.ExchangeRate {
	rate := domain.ExchangeRate{
		From:      from,
		To:        to,
		Fallback:  true,
		Source:    FallbackSource,
		FetchedAt: time.Now().UTC(),
	}

	if v, ok := s.cfg.Fallback[from+":"+to]; ok && domain.ValidateRate(v) == nil {
		rate.Rate = v
	} else if v, ok := s.cfg.Fallback[to+":"+from]; ok && domain.ValidateRate(v) == nil {
		rate.Rate = 1 / v
	}

	if rate.Rate == 0 {
		s.logger.ErrorContext(ctx, "rate_service: no fallback configured",
			slog.String("pair", from+":"+to),
		)
		return rate
	}

	s.logger.WarnContext(ctx, "rate_service: using fallback rate",
		slog.String("pair", from+":"+to),
		slog.Float64("rate", rate.Rate),
	)
	return rate
}
