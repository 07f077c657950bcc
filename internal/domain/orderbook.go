package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single resting order: a price and the size available there.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// NewPriceLevel builds a PriceLevel from float inputs. It rejects NaN, ±Inf
// and non-positive values before they can reach decimal arithmetic.
func NewPriceLevel(price, size float64) (PriceLevel, error) {
	if !isPositiveFinite(price) {
		return PriceLevel{}, fmt.Errorf("%w: price %v", ErrInvalidOrderbook, price)
	}
	if !isPositiveFinite(size) {
		return PriceLevel{}, fmt.Errorf("%w: size %v", ErrInvalidOrderbook, size)
	}
	return PriceLevel{
		Price: decimal.NewFromFloat(price),
		Size:  decimal.NewFromFloat(size),
	}, nil
}

// ParsePriceLevel builds a PriceLevel from the decimal strings most venues
// publish.
func ParsePriceLevel(price, size string) (PriceLevel, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return PriceLevel{}, fmt.Errorf("%w: price %q: %v", ErrInvalidOrderbook, price, err)
	}
	s, err := decimal.NewFromString(size)
	if err != nil {
		return PriceLevel{}, fmt.Errorf("%w: size %q: %v", ErrInvalidOrderbook, size, err)
	}
	lvl := PriceLevel{Price: p, Size: s}
	if err := lvl.Validate(); err != nil {
		return PriceLevel{}, err
	}
	return lvl, nil
}

// Validate checks that both price and size are strictly positive.
func (l PriceLevel) Validate() error {
	if !l.Price.IsPositive() {
		return fmt.Errorf("%w: price %s must be > 0", ErrInvalidOrderbook, l.Price)
	}
	if !l.Size.IsPositive() {
		return fmt.Errorf("%w: size %s must be > 0", ErrInvalidOrderbook, l.Size)
	}
	return nil
}

// Orderbook is a snapshot of one instrument on one platform. Bids are sorted
// by price descending and asks ascending, so index 0 is the top of book on
// each side. Either side may be empty.
type Orderbook struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// BestBid returns the highest bid, or false when there are no bids.
func (b Orderbook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, or false when there are no asks.
func (b Orderbook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// Validate checks every level and the ordering of both sides. It returns an
// error wrapping ErrInvalidOrderbook on the first problem found.
func (b Orderbook) Validate() error {
	for i, lvl := range b.Bids {
		if err := lvl.Validate(); err != nil {
			return fmt.Errorf("bid %d: %w", i, err)
		}
		if i > 0 && lvl.Price.GreaterThan(b.Bids[i-1].Price) {
			return fmt.Errorf("%w: bids not descending at %d", ErrInvalidOrderbook, i)
		}
	}
	for i, lvl := range b.Asks {
		if err := lvl.Validate(); err != nil {
			return fmt.Errorf("ask %d: %w", i, err)
		}
		if i > 0 && lvl.Price.LessThan(b.Asks[i-1].Price) {
			return fmt.Errorf("%w: asks not ascending at %d", ErrInvalidOrderbook, i)
		}
	}
	return nil
}

// Snapshot is an Orderbook together with where and when it was observed.
type Snapshot struct {
	Platform     string    `json:"platform"`
	InstrumentID string    `json:"instrument_id"`
	Currency     string    `json:"currency"`
	Book         Orderbook `json:"book"`
	Timestamp    time.Time `json:"timestamp"`
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
