package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func pairSources() (*fakeSource, *fakeSource) {
	a := &fakeSource{name: "polymarket", currency: "USD", books: map[string]domain.Orderbook{
		"pa": {Bids: []domain.PriceLevel{level("0.47", "100")}, Asks: []domain.PriceLevel{level("0.44", "100")}},
	}}
	b := &fakeSource{name: "mock", currency: "INR", books: map[string]domain.Orderbook{
		"mb": {Bids: []domain.PriceLevel{level("36", "100")}, Asks: []domain.PriceLevel{level("38", "100")}},
	}}
	return a, b
}

func TestQuotes(t *testing.T) {
	a, b := pairSources()
	cache := &fakeBookCache{}
	s := NewQuoteService(a, b, cache, testLogger())

	snapA, snapB, err := s.Quotes(context.Background(), domain.Market{ID: "m1", InstrumentA: "pa", InstrumentB: "mb"})
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if snapA.Platform != "polymarket" || snapA.Currency != "USD" || snapA.InstrumentID != "pa" {
		t.Errorf("snapA = %+v", snapA)
	}
	if snapB.Platform != "mock" || snapB.Currency != "INR" || snapB.Timestamp.IsZero() {
		t.Errorf("snapB = %+v", snapB)
	}
	if len(cache.snaps) != 2 {
		t.Errorf("cached %d snapshots, want 2", len(cache.snaps))
	}
}

func TestQuotes_Failures(t *testing.T) {
	a, b := pairSources()
	s := NewQuoteService(a, b, nil, testLogger())

	_, _, err := s.Quotes(context.Background(), domain.Market{ID: "m2", InstrumentA: "pa", InstrumentB: "missing"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing instrument: err = %v", err)
	}

	a.books["bad"] = domain.Orderbook{Asks: []domain.PriceLevel{level("0.5", "1"), level("0.4", "1")}}
	_, _, err = s.Quotes(context.Background(), domain.Market{ID: "m3", InstrumentA: "bad", InstrumentB: "mb"})
	if !errors.Is(err, domain.ErrInvalidOrderbook) {
		t.Errorf("unsorted book: err = %v", err)
	}
}
