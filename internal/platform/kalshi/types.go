package kalshi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// KalshiOrderbook represents the orderbook for a Kalshi market. Kalshi only
// publishes resting bids: YES bids and NO bids, both in cents.
type KalshiOrderbook struct {
	YesBids []KalshiPriceLevel `json:"yes"`
	NoBids  []KalshiPriceLevel `json:"no"`
}

// KalshiPriceLevel is a single price+quantity entry in the Kalshi orderbook.
type KalshiPriceLevel struct {
	Price    int64 `json:"price"`    // in cents (1-99)
	Quantity int64 `json:"quantity"` // number of contracts
}

// UnmarshalJSON accepts both the [price, quantity] pair the REST API returns
// and the {"price","quantity"} object form.
func (l *KalshiPriceLevel) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pair []int64
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("kalshi: price level has %d elements, want 2", len(pair))
		}
		l.Price, l.Quantity = pair[0], pair[1]
		return nil
	}
	type plain KalshiPriceLevel
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = KalshiPriceLevel(p)
	return nil
}

// KalshiErrorResponse represents a Kalshi API error response.
type KalshiErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToDomainOrderbook maps the YES side of the market into a dollar-priced
// book. YES bids become bids. A NO bid at n cents is an offer to sell YES at
// 100-n, so NO bids become YES asks carrying the NO quantity.
func (o *KalshiOrderbook) ToDomainOrderbook() (domain.Orderbook, error) {
	var ob domain.Orderbook
	for _, lvl := range o.YesBids {
		if pl, ok := centsLevel(lvl.Price, lvl.Quantity); ok {
			ob.Bids = append(ob.Bids, pl)
		}
	}
	for _, lvl := range o.NoBids {
		if pl, ok := centsLevel(100-lvl.Price, lvl.Quantity); ok {
			ob.Asks = append(ob.Asks, pl)
		}
	}

	sort.SliceStable(ob.Bids, func(i, j int) bool { return ob.Bids[i].Price.GreaterThan(ob.Bids[j].Price) })
	sort.SliceStable(ob.Asks, func(i, j int) bool { return ob.Asks[i].Price.LessThan(ob.Asks[j].Price) })

	if err := ob.Validate(); err != nil {
		return domain.Orderbook{}, err
	}
	return ob, nil
}

// centsLevel skips levels outside the tradable 1-99 cent range or without
// quantity.
func centsLevel(cents, qty int64) (domain.PriceLevel, bool) {
	if cents <= 0 || cents >= 100 || qty <= 0 {
		return domain.PriceLevel{}, false
	}
	return domain.PriceLevel{
		Price: decimal.New(cents, -2),
		Size:  decimal.NewFromInt(qty),
	}, true
}
