package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewPriceLevel(t *testing.T) {
	tests := []struct {
		name        string
		price, size float64
		wantErr     bool
	}{
		{name: "valid", price: 0.46, size: 200},
		{name: "zero price", price: 0, size: 1, wantErr: true},
		{name: "negative size", price: 0.5, size: -1, wantErr: true},
		{name: "nan price", price: math.NaN(), size: 1, wantErr: true},
		{name: "inf size", price: 0.5, size: math.Inf(1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPriceLevel(tt.price, tt.size)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOrderbook) {
					t.Fatalf("err = %v, want ErrInvalidOrderbook", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParsePriceLevel(t *testing.T) {
	lvl, err := ParsePriceLevel("0.52", "1200.5")
	if err != nil {
		t.Fatalf("ParsePriceLevel: %v", err)
	}
	if !lvl.Price.Equal(decimal.RequireFromString("0.52")) {
		t.Errorf("price = %s", lvl.Price)
	}
	for _, in := range [][2]string{{"abc", "1"}, {"0.5", ""}, {"0", "1"}, {"0.5", "-3"}} {
		if _, err := ParsePriceLevel(in[0], in[1]); !errors.Is(err, ErrInvalidOrderbook) {
			t.Errorf("ParsePriceLevel(%q, %q) err = %v", in[0], in[1], err)
		}
	}
}

func TestOrderbookValidate(t *testing.T) {
	l := func(p, s string) PriceLevel {
		return PriceLevel{Price: decimal.RequireFromString(p), Size: decimal.RequireFromString(s)}
	}
	tests := []struct {
		name    string
		book    Orderbook
		wantErr bool
	}{
		{name: "empty", book: Orderbook{}},
		{name: "sorted", book: Orderbook{
			Bids: []PriceLevel{l("0.45", "1"), l("0.44", "2")},
			Asks: []PriceLevel{l("0.46", "1"), l("0.47", "2")},
		}},
		{name: "equal prices allowed", book: Orderbook{
			Bids: []PriceLevel{l("0.45", "1"), l("0.45", "2")},
		}},
		{name: "bids ascending", book: Orderbook{
			Bids: []PriceLevel{l("0.44", "1"), l("0.45", "2")},
		}, wantErr: true},
		{name: "asks descending", book: Orderbook{
			Asks: []PriceLevel{l("0.47", "1"), l("0.46", "2")},
		}, wantErr: true},
		{name: "zero size", book: Orderbook{
			Asks: []PriceLevel{l("0.47", "0")},
		}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.book.Validate()
			if tt.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidOrderbook) {
				t.Errorf("err = %v, want wrapped ErrInvalidOrderbook", err)
			}
		})
	}
}

func TestBestBidAsk(t *testing.T) {
	var empty Orderbook
	if _, ok := empty.BestBid(); ok {
		t.Error("BestBid on empty book reported ok")
	}
	if _, ok := empty.BestAsk(); ok {
		t.Error("BestAsk on empty book reported ok")
	}

	b := Orderbook{
		Bids: []PriceLevel{{Price: decimal.RequireFromString("0.45"), Size: decimal.NewFromInt(1)}},
		Asks: []PriceLevel{{Price: decimal.RequireFromString("0.46"), Size: decimal.NewFromInt(1)}},
	}
	if bid, ok := b.BestBid(); !ok || bid.Price.String() != "0.45" {
		t.Errorf("BestBid = %v, %v", bid, ok)
	}
	if ask, ok := b.BestAsk(); !ok || ask.Price.String() != "0.46" {
		t.Errorf("BestAsk = %v, %v", ask, ok)
	}
}

func TestValidateRate(t *testing.T) {
	for _, r := range []float64{0.012, 1, 83.2} {
		if err := ValidateRate(r); err != nil {
			t.Errorf("ValidateRate(%v) = %v", r, err)
		}
	}
	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := ValidateRate(r); !errors.Is(err, ErrInvalidRate) {
			t.Errorf("ValidateRate(%v) = %v, want ErrInvalidRate", r, err)
		}
	}
	if !SameCurrency("usd", " USD") {
		t.Error("SameCurrency should ignore case and spaces")
	}
	if id := Identity("USD"); id.Rate != 1 || id.Fallback {
		t.Errorf("Identity = %+v", id)
	}
}

func TestEvaluationUsedFallbackRate(t *testing.T) {
	e := Evaluation{Rates: []ExchangeRate{Identity("USD")}}
	if e.UsedFallbackRate() {
		t.Error("identity rate reported as fallback")
	}
	e.Rates = append(e.Rates, ExchangeRate{From: "INR", To: "USD", Rate: 0.012, Fallback: true})
	if !e.UsedFallbackRate() {
		t.Error("fallback rate not reported")
	}
}
