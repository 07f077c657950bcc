// Package arbitrage compares orderbooks from two platforms and derives the
// cross-platform opportunities between them. Everything here is pure: no I/O,
// no shared state, safe to call from any number of goroutines.
package arbitrage

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// PricePrecision is the number of fractional digits kept after a currency
// conversion.
const PricePrecision int32 = 4

var hundred = decimal.NewFromInt(100)

// ConvertOrderbook returns a copy of book with every price multiplied by rate
// and rounded half-up to PricePrecision digits. Sizes are unchanged and book
// is not modified. A rate of exactly 1 returns an unrounded copy.
func ConvertOrderbook(book domain.Orderbook, rate float64) (domain.Orderbook, error) {
	if err := domain.ValidateRate(rate); err != nil {
		return domain.Orderbook{}, err
	}
	if rate == 1 {
		return copyBook(book), nil
	}

	r := decimal.NewFromFloat(rate)
	bids, err := convertLevels(book.Bids, r)
	if err != nil {
		return domain.Orderbook{}, fmt.Errorf("arbitrage: convert bids: %w", err)
	}
	asks, err := convertLevels(book.Asks, r)
	if err != nil {
		return domain.Orderbook{}, fmt.Errorf("arbitrage: convert asks: %w", err)
	}
	return domain.Orderbook{Bids: bids, Asks: asks}, nil
}

func convertLevels(levels []domain.PriceLevel, rate decimal.Decimal) ([]domain.PriceLevel, error) {
	if levels == nil {
		return nil, nil
	}
	out := make([]domain.PriceLevel, len(levels))
	for i, lvl := range levels {
		price := lvl.Price.Mul(rate).Round(PricePrecision)
		if !price.IsPositive() {
			return nil, fmt.Errorf("%w: level %d price %s rounds to %s", domain.ErrInvalidOrderbook, i, lvl.Price, price)
		}
		out[i] = domain.PriceLevel{Price: price, Size: lvl.Size}
	}
	return out, nil
}

func copyBook(book domain.Orderbook) domain.Orderbook {
	var out domain.Orderbook
	if book.Bids != nil {
		out.Bids = append([]domain.PriceLevel(nil), book.Bids...)
	}
	if book.Asks != nil {
		out.Asks = append([]domain.PriceLevel(nil), book.Asks...)
	}
	return out
}

// EvaluatePair compares two books already expressed in the same currency and
// returns up to two opportunities: buy on A / sell on B first, then buy on B /
// sell on A. A direction is omitted when its buy side has no ask or its sell
// side has no bid. Both books must have passed Orderbook.Validate.
func EvaluatePair(a, b domain.Orderbook, marketID, labelA, labelB string) []domain.Opportunity {
	opps := make([]domain.Opportunity, 0, 2)
	if opp, ok := evaluateDirection(a, b, marketID, labelA, labelB); ok {
		opps = append(opps, opp)
	}
	if opp, ok := evaluateDirection(b, a, marketID, labelB, labelA); ok {
		opps = append(opps, opp)
	}
	return opps
}

func evaluateDirection(buyBook, sellBook domain.Orderbook, marketID, buyLabel, sellLabel string) (domain.Opportunity, bool) {
	ask, ok := buyBook.BestAsk()
	if !ok {
		return domain.Opportunity{}, false
	}
	bid, ok := sellBook.BestBid()
	if !ok {
		return domain.Opportunity{}, false
	}

	profit := bid.Price.Sub(ask.Price)
	size := decimal.Min(ask.Size, bid.Size)

	return domain.Opportunity{
		MarketID:         marketID,
		BuyPlatform:      buyLabel,
		SellPlatform:     sellLabel,
		BuyPrice:         ask.Price,
		SellPrice:        bid.Price,
		Profit:           profit,
		ProfitPercentage: profit.Div(ask.Price).Mul(hundred),
		BuySize:          size,
		SellSize:         size,
		IsProfitable:     profit.IsPositive(),
	}, true
}

// SelectBest returns the profitable opportunity with the highest
// ProfitPercentage. Ties go to the earliest entry. It returns false when no
// entry is profitable.
func SelectBest(opps []domain.Opportunity) (domain.Opportunity, bool) {
	var best domain.Opportunity
	found := false
	for _, opp := range opps {
		if !opp.IsProfitable {
			continue
		}
		if !found || opp.ProfitPercentage.GreaterThan(best.ProfitPercentage) {
			best = opp
			found = true
		}
	}
	return best, found
}

// AttachLocalPrices returns a copy of opps where BuyPriceLocal and
// SellPriceLocal are set from the unconverted books in local, keyed by
// platform label. Platforms missing from local are left untouched.
func AttachLocalPrices(opps []domain.Opportunity, local map[string]domain.Orderbook) []domain.Opportunity {
	out := make([]domain.Opportunity, len(opps))
	for i, opp := range opps {
		if book, ok := local[opp.BuyPlatform]; ok {
			if ask, ok := book.BestAsk(); ok {
				p := ask.Price
				opp.BuyPriceLocal = &p
			}
		}
		if book, ok := local[opp.SellPlatform]; ok {
			if bid, ok := book.BestBid(); ok {
				p := bid.Price
				opp.SellPriceLocal = &p
			}
		}
		out[i] = opp
	}
	return out
}
