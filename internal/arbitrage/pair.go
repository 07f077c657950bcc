package arbitrage

import (
	"fmt"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Quote is one side of a pair: a platform label, its book in the platform's
// own currency, and the rate that converts that currency into the settlement
// currency (1 when they match).
type Quote struct {
	Label string
	Book  domain.Orderbook
	Rate  float64
}

// Evaluate validates both books, converts them into the settlement currency,
// evaluates both directions and attaches the unconverted prices of any side
// whose rate is not 1.
func Evaluate(marketID string, a, b Quote) ([]domain.Opportunity, error) {
	convA, err := prepare(a)
	if err != nil {
		return nil, err
	}
	convB, err := prepare(b)
	if err != nil {
		return nil, err
	}

	opps := EvaluatePair(convA, convB, marketID, a.Label, b.Label)

	local := make(map[string]domain.Orderbook, 2)
	for _, q := range []Quote{a, b} {
		if q.Rate != 1 {
			local[q.Label] = q.Book
		}
	}
	if len(local) > 0 {
		opps = AttachLocalPrices(opps, local)
	}
	return opps, nil
}

func prepare(q Quote) (domain.Orderbook, error) {
	if err := q.Book.Validate(); err != nil {
		return domain.Orderbook{}, fmt.Errorf("arbitrage: %s book: %w", q.Label, err)
	}
	conv, err := ConvertOrderbook(q.Book, q.Rate)
	if err != nil {
		return domain.Orderbook{}, fmt.Errorf("arbitrage: %s: %w", q.Label, err)
	}
	return conv, nil
}
