package service

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// MarketService serves the configured market pairs.
type MarketService struct {
	markets []domain.Market
	byID    map[string]domain.Market
}

// NewMarketService indexes markets by ID. Later duplicates replace earlier
// ones in the index but the list keeps configuration order.
func NewMarketService(markets []domain.Market) *MarketService {
	byID := make(map[string]domain.Market, len(markets))
	for _, m := range markets {
		byID[m.ID] = m
	}
	return &MarketService{markets: markets, byID: byID}
}

// List returns every configured market.
func (s *MarketService) List(_ context.Context) []domain.Market {
	out := make([]domain.Market, len(s.markets))
	copy(out, s.markets)
	return out
}

// Get returns one market or an error wrapping domain.ErrNotFound.
func (s *MarketService) Get(_ context.Context, id string) (domain.Market, error) {
	m, ok := s.byID[id]
	if !ok {
		return domain.Market{}, fmt.Errorf("market_service: market %q: %w", id, domain.ErrNotFound)
	}
	return m, nil
}
