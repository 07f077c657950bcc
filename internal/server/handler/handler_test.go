package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeOpps struct {
	gotLimit int
	gotOpts  domain.ListOpts
	err      error
}

func (f *fakeOpps) ListRecent(_ context.Context, limit int) ([]domain.Opportunity, error) {
	f.gotLimit = limit
	return nil, f.err
}

func (f *fakeOpps) ListByMarket(_ context.Context, id string, opts domain.ListOpts) ([]domain.Opportunity, error) {
	f.gotOpts = opts
	return []domain.Opportunity{{ID: "o1", MarketID: id}}, f.err
}

type fakeMarkets struct{ markets []domain.Market }

func (f fakeMarkets) List(context.Context) []domain.Market { return f.markets }

func (f fakeMarkets) Get(_ context.Context, id string) (domain.Market, error) {
	for _, m := range f.markets {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Market{}, fmt.Errorf("market %q: %w", id, domain.ErrNotFound)
}

type fakeEvaluator struct{ err error }

func (f fakeEvaluator) EvaluateMarket(_ context.Context, m domain.Market) (domain.Evaluation, error) {
	if f.err != nil {
		return domain.Evaluation{}, f.err
	}
	return domain.Evaluation{MarketID: m.ID}, nil
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Pinger
		want   int
	}{
		{"no checks", nil, http.StatusOK},
		{"all ok", map[string]Pinger{"redis": func(context.Context) error { return nil }}, http.StatusOK},
		{"one down", map[string]Pinger{
			"redis":    func(context.Context) error { return nil },
			"postgres": func(context.Context) error { return errors.New("refused") },
		}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.checks, testLogger()).HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestListRecent_Limit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"?limit=5", 5},
		{"?limit=1000", 200},
		{"?limit=-3", 20},
		{"?limit=abc", 20},
	}
	for _, tt := range tests {
		f := &fakeOpps{}
		rec := httptest.NewRecorder()
		NewOpportunityHandler(f, testLogger()).ListRecent(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities/recent"+tt.query, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: status = %d", tt.query, rec.Code)
		}
		if f.gotLimit != tt.want {
			t.Errorf("%q: limit = %d, want %d", tt.query, f.gotLimit, tt.want)
		}
		if !strings.Contains(rec.Body.String(), `"opportunities":[]`) {
			t.Errorf("%q: body = %s", tt.query, rec.Body)
		}
	}
}

func TestListRecent_Error(t *testing.T) {
	rec := httptest.NewRecorder()
	NewOpportunityHandler(&fakeOpps{err: errors.New("db")}, testLogger()).
		ListRecent(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities/recent", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestListByMarket_Window(t *testing.T) {
	f := &fakeOpps{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/markets/{id}/opportunities", NewOpportunityHandler(f, testLogger()).ListByMarket)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/markets/m1/opportunities?limit=10&offset=4&since=2026-01-01T00:00:00Z&until=bogus", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.gotOpts.Limit != 10 || f.gotOpts.Offset != 4 {
		t.Errorf("opts = %+v", f.gotOpts)
	}
	if f.gotOpts.Since == nil || !f.gotOpts.Since.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("since = %v", f.gotOpts.Since)
	}
	if f.gotOpts.Until != nil {
		t.Errorf("until = %v, want nil for unparsable value", f.gotOpts.Until)
	}
}

func TestEvaluateMarket(t *testing.T) {
	markets := fakeMarkets{markets: []domain.Market{{ID: "m1"}}}
	tests := []struct {
		name string
		path string
		eval Evaluator
		want int
	}{
		{"ok", "/api/markets/m1/evaluate", fakeEvaluator{}, http.StatusOK},
		{"unknown market", "/api/markets/zz/evaluate", fakeEvaluator{}, http.StatusNotFound},
		{"venue book bad", "/api/markets/m1/evaluate", fakeEvaluator{err: domain.ErrInvalidOrderbook}, http.StatusBadGateway},
		{"venue throttled", "/api/markets/m1/evaluate", fakeEvaluator{err: domain.ErrRateLimited}, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/markets/{id}/evaluate", NewMarketHandler(markets, tt.eval, testLogger()).EvaluateMarket)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestListMarkets(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMarketHandler(fakeMarkets{markets: []domain.Market{{ID: "a"}, {ID: "b"}}}, fakeEvaluator{}, testLogger()).
		ListMarkets(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	var resp listMarketsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || resp.Markets[1].ID != "b" {
		t.Errorf("resp = %+v", resp)
	}
}

func postEvaluate(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body))
	NewEvaluateHandler(testLogger()).Evaluate(rec, req)
	return rec
}

func TestEvaluate(t *testing.T) {
	rec := postEvaluate(t, `{
		"market_id": "m1",
		"label_a": "polymarket",
		"label_b": "kalshi",
		"book_a": {"bids": [{"price": "0.45", "size": "100"}], "asks": [{"price": "0.46", "size": "100"}]},
		"book_b": {"bids": [{"price": "0.48", "size": "50"}], "asks": [{"price": "0.49", "size": "50"}]}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var resp evaluateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Opportunities) != 2 {
		t.Fatalf("opportunities = %d, want 2", len(resp.Opportunities))
	}
	if resp.Best == nil || resp.Best.Direction() != "polymarket->kalshi" {
		t.Fatalf("best = %+v", resp.Best)
	}
	if !resp.Best.Profit.Equal(decimal.RequireFromString("0.02")) {
		t.Errorf("profit = %s", resp.Best.Profit)
	}
	if !resp.Best.BuySize.Equal(decimal.NewFromInt(50)) {
		t.Errorf("size = %s, want 50", resp.Best.BuySize)
	}
}

func TestEvaluate_WithRate(t *testing.T) {
	rec := postEvaluate(t, `{
		"label_a": "polymarket", "label_b": "mock",
		"book_a": {"bids": [{"price": "0.47", "size": "10"}], "asks": [{"price": "0.44", "size": "10"}]},
		"book_b": {"bids": [{"price": "36", "size": "10"}], "asks": [{"price": "38", "size": "10"}]},
		"rate_b": 0.012
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp evaluateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Best == nil || resp.Best.BuyPriceLocal == nil || resp.Best.BuyPriceLocal.String() != "38" {
		t.Fatalf("best = %+v", resp.Best)
	}
}

func TestEvaluate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"book_a":`, "invalid request body"},
		{"unknown field", `{"bogus": 1}`, "invalid request body"},
		{"same labels", `{"label_a":"x","label_b":"x"}`, "must differ"},
		{"negative price", `{"book_a":{"asks":[{"price":"-0.1","size":"1"}]}}`, domain.ErrInvalidOrderbook.Error()},
		{"unsorted bids", `{"book_b":{"bids":[{"price":"0.1","size":"1"},{"price":"0.2","size":"1"}]}}`, domain.ErrInvalidOrderbook.Error()},
		{"zero rate", `{"rate_a": 0}`, domain.ErrInvalidRate.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postEvaluate(t, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body = %s, want mention of %q", rec.Body, tt.want)
			}
		})
	}
}

func TestEvaluate_EmptyBooks(t *testing.T) {
	rec := postEvaluate(t, `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"opportunities":[]`) || !strings.Contains(rec.Body.String(), `"best":null`) {
		t.Errorf("body = %s", rec.Body)
	}
}
