package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// QuoteService fetches both sides of a market pair.
type QuoteService struct {
	a, b   OrderbookSource
	cache  domain.OrderbookCache
	logger *slog.Logger
	now    func() time.Time
}

// NewQuoteService creates a QuoteService. cache may be nil.
func NewQuoteService(a, b OrderbookSource, cache domain.OrderbookCache, logger *slog.Logger) *QuoteService {
	return &QuoteService{
		a:      a,
		b:      b,
		cache:  cache,
		logger: logger.With(slog.String("component", "quote_service")),
		now:    time.Now,
	}
}

// Quotes fetches market's books from A and B concurrently. If either side
// fails the whole call fails: a pair with one book cannot be evaluated.
func (s *QuoteService) Quotes(ctx context.Context, market domain.Market) (domain.Snapshot, domain.Snapshot, error) {
	var snapA, snapB domain.Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapA, err = s.fetch(gctx, s.a, market.InstrumentA)
		return err
	})
	g.Go(func() error {
		var err error
		snapB, err = s.fetch(gctx, s.b, market.InstrumentB)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, domain.Snapshot{}, fmt.Errorf("quote_service: market %s: %w", market.ID, err)
	}
	return snapA, snapB, nil
}

func (s *QuoteService) fetch(ctx context.Context, src OrderbookSource, instrumentID string) (domain.Snapshot, error) {
	book, err := src.GetOrderbook(ctx, instrumentID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s %s: %w", src.Name(), instrumentID, err)
	}
	if err := book.Validate(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s %s: %w", src.Name(), instrumentID, err)
	}

	snap := domain.Snapshot{
		Platform:     src.Name(),
		InstrumentID: instrumentID,
		Currency:     src.Currency(),
		Book:         book,
		Timestamp:    s.now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.SetSnapshot(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "quote_service: cache snapshot failed",
				slog.String("platform", snap.Platform),
				slog.String("instrument", instrumentID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.DebugContext(ctx, "quote_service: fetched book",
		slog.String("platform", snap.Platform),
		slog.String("instrument", instrumentID),
		slog.Int("bids", len(book.Bids)),
		slog.Int("asks", len(book.Asks)),
	)
	return snap, nil
}
