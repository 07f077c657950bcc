package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity is one direction of a cross-platform trade: buy at the best ask
// of BuyPlatform, sell at the best bid of SellPlatform. All prices are in the
// settlement currency; the *Local fields carry the venue's own quote when a
// conversion was applied.
type Opportunity struct {
	ID               string           `json:"id"`
	MarketID         string           `json:"market_id"`
	BuyPlatform      string           `json:"buy_platform"`
	SellPlatform     string           `json:"sell_platform"`
	BuyPrice         decimal.Decimal  `json:"buy_price"`
	SellPrice        decimal.Decimal  `json:"sell_price"`
	BuyPriceLocal    *decimal.Decimal `json:"buy_price_local,omitempty"`
	SellPriceLocal   *decimal.Decimal `json:"sell_price_local,omitempty"`
	Profit           decimal.Decimal  `json:"profit"`
	ProfitPercentage decimal.Decimal  `json:"profit_percentage"`
	BuySize          decimal.Decimal  `json:"buy_size"`
	SellSize         decimal.Decimal  `json:"sell_size"`
	IsProfitable     bool             `json:"is_profitable"`
	RateFallback     bool             `json:"rate_fallback"`
	DetectedAt       time.Time        `json:"detected_at"`
}

// Direction is a short label such as "polymarket->kalshi".
func (o Opportunity) Direction() string {
	return o.BuyPlatform + "->" + o.SellPlatform
}

// Evaluation is the result of evaluating one market at one point in time.
type Evaluation struct {
	MarketID      string         `json:"market_id"`
	Snapshots     []Snapshot     `json:"snapshots"`
	Rates         []ExchangeRate `json:"rates"`
	Opportunities []Opportunity  `json:"opportunities"`
	Best          *Opportunity   `json:"best,omitempty"`
	EvaluatedAt   time.Time      `json:"evaluated_at"`
}

// UsedFallbackRate reports whether any conversion in the evaluation relied on
// a fallback constant.
func (e Evaluation) UsedFallbackRate() bool {
	for _, r := range e.Rates {
		if r.Fallback {
			return true
		}
	}
	return false
}
