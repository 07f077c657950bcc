// Package mock serves fixture orderbooks quoted in a local currency. It stands
// in for a venue that has no public API and is used for demos and tests.
package mock

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

const (
	// DefaultName is the label used when no name is configured.
	DefaultName = "mock"
	// DefaultCurrency is the currency fixture prices are quoted in.
	DefaultCurrency = "INR"
)

// Source returns fixture books keyed by instrument id.
type Source struct {
	name     string
	currency string

	mu    sync.RWMutex
	books map[string]domain.Orderbook
}

// NewSource loads fixtures from path, or from the embedded set when path is
// empty. Every book is validated on load.
func NewSource(name, currency, path string) (*Source, error) {
	if name == "" {
		name = DefaultName
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = fixtureFS.ReadFile("fixtures/books.json")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("mock: read fixtures: %w", err)
	}

	var books map[string]domain.Orderbook
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("mock: decode fixtures: %w", err)
	}
	for id, ob := range books {
		if err := ob.Validate(); err != nil {
			return nil, fmt.Errorf("mock: fixture %s: %w", id, err)
		}
	}

	return &Source{name: name, currency: currency, books: books}, nil
}

// Name implements service.OrderbookSource.
func (s *Source) Name() string { return s.name }

// Currency implements service.OrderbookSource.
func (s *Source) Currency() string { return s.currency }

// GetOrderbook returns a copy of the fixture for instrumentID.
func (s *Source) GetOrderbook(ctx context.Context, instrumentID string) (domain.Orderbook, error) {
	if err := ctx.Err(); err != nil {
		return domain.Orderbook{}, err
	}

	s.mu.RLock()
	ob, ok := s.books[instrumentID]
	s.mu.RUnlock()
	if !ok {
		return domain.Orderbook{}, fmt.Errorf("mock: instrument %s: %w", instrumentID, domain.ErrNotFound)
	}
	return domain.Orderbook{
		Bids: append([]domain.PriceLevel(nil), ob.Bids...),
		Asks: append([]domain.PriceLevel(nil), ob.Asks...),
	}, nil
}

// SetOrderbook replaces the fixture for instrumentID.
func (s *Source) SetOrderbook(instrumentID string, ob domain.Orderbook) error {
	if err := ob.Validate(); err != nil {
		return fmt.Errorf("mock: set %s: %w", instrumentID, err)
	}
	s.mu.Lock()
	s.books[instrumentID] = ob
	s.mu.Unlock()
	return nil
}

// Instruments lists the ids that have a fixture.
func (s *Source) Instruments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.books))
	for id := range s.books {
		ids = append(ids, id)
	}
	return ids
}
