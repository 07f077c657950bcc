package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ExchangeRate converts prices quoted in From into To: to = from * Rate.
type ExchangeRate struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Rate      float64   `json:"rate"`
	Fallback  bool      `json:"fallback"` // true when a configured constant replaced a live quote
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Identity returns the 1:1 rate used when both sides share a currency.
func Identity(currency string) ExchangeRate {
	return ExchangeRate{
		From:      currency,
		To:        currency,
		Rate:      1,
		Source:    "identity",
		FetchedAt: time.Now().UTC(),
	}
}

// Validate rejects non-positive and non-finite rates.
func (r ExchangeRate) Validate() error {
	return ValidateRate(r.Rate)
}

// ValidateRate reports ErrInvalidRate when rate is not a positive finite number.
func ValidateRate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	return nil
}

// SameCurrency compares ISO codes case-insensitively.
func SameCurrency(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
