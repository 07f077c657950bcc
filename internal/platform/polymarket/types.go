package polymarket

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// BookResponse is the payload of GET /book.
type BookResponse struct {
	Market    string       `json:"market"`
	AssetID   string       `json:"asset_id"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp string       `json:"timestamp"`
	Hash      string       `json:"hash"`
}

// PriceLevel is a single bid/ask level. The CLOB encodes both fields as
// decimal strings.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ToDomainOrderbook parses every level, drops empty ones, and sorts bids
// descending and asks ascending. The CLOB does not promise any order.
func (b *BookResponse) ToDomainOrderbook() (domain.Orderbook, error) {
	bids, err := parseLevels(b.Bids)
	if err != nil {
		return domain.Orderbook{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := parseLevels(b.Asks)
	if err != nil {
		return domain.Orderbook{}, fmt.Errorf("asks: %w", err)
	}

	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Price.GreaterThan(bids[j].Price) })
	sort.SliceStable(asks, func(i, j int) bool { return asks[i].Price.LessThan(asks[j].Price) })

	ob := domain.Orderbook{Bids: bids, Asks: asks}
	if err := ob.Validate(); err != nil {
		return domain.Orderbook{}, err
	}
	return ob, nil
}

func parseLevels(levels []PriceLevel) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		if size, err := decimal.NewFromString(lvl.Size); err == nil && size.IsZero() {
			continue
		}
		pl, err := domain.ParsePriceLevel(lvl.Price, lvl.Size)
		if err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, nil
}
