package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

type arbFixture struct {
	svc      *ArbService
	store    *fakeStore
	bus      *fakeBus
	audit    *fakeAudit
	notifier *fakeNotifier
	archiver *fakeArchiver
}

func newArbFixture(t *testing.T, minPct float64) *arbFixture {
	t.Helper()
	a, b := pairSources()
	quotes := NewQuoteService(a, b, nil, testLogger())
	rates := NewRateService(&fakeFetcher{err: errors.New("offline")}, nil,
		RateConfig{Fallback: map[string]float64{"INR:USD": 0.012}}, testLogger())

	f := &arbFixture{
		store:    &fakeStore{},
		bus:      &fakeBus{},
		audit:    &fakeAudit{},
		notifier: &fakeNotifier{},
		archiver: &fakeArchiver{},
	}
	f.svc = NewArbService(quotes, rates, Sinks{
		Store:    f.store,
		Bus:      f.bus,
		Audit:    f.audit,
		Notifier: f.notifier,
		Archiver: f.archiver,
	}, ArbConfig{SettlementCurrency: "USD", MinProfitPct: minPct}, testLogger())

	n := 0
	f.svc.newID = func() string { n++; return fmt.Sprintf("opp-%d", n) }
	f.svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return f
}

var market1 = domain.Market{ID: "m1", InstrumentA: "pa", InstrumentB: "mb"}

func TestEvaluateMarket(t *testing.T) {
	f := newArbFixture(t, 1)

	eval, err := f.svc.EvaluateMarket(context.Background(), market1)
	if err != nil {
		t.Fatalf("EvaluateMarket: %v", err)
	}
	if len(eval.Opportunities) != 2 {
		t.Fatalf("opportunities = %d, want 2", len(eval.Opportunities))
	}

	first := eval.Opportunities[0]
	if first.Direction() != "polymarket->mock" || first.IsProfitable {
		t.Errorf("first = %s profitable=%v", first.Direction(), first.IsProfitable)
	}
	if first.SellPrice.StringFixed(4) != "0.4320" {
		t.Errorf("converted sell price = %s, want 0.4320", first.SellPrice)
	}

	if eval.Best == nil {
		t.Fatal("expected a best opportunity")
	}
	best := *eval.Best
	if best.Direction() != "mock->polymarket" || best.ID != "opp-2" {
		t.Errorf("best = %s id=%s", best.Direction(), best.ID)
	}
	if best.BuyPrice.StringFixed(4) != "0.4560" || best.Profit.StringFixed(3) != "0.014" {
		t.Errorf("best buy=%s profit=%s", best.BuyPrice, best.Profit)
	}
	if best.BuyPriceLocal == nil || best.BuyPriceLocal.String() != "38" {
		t.Errorf("buy local = %v", best.BuyPriceLocal)
	}
	if !best.RateFallback || !eval.UsedFallbackRate() {
		t.Error("fallback rate not surfaced")
	}
	if !best.DetectedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("detected at = %v", best.DetectedAt)
	}
	if len(eval.Rates) != 2 || eval.Rates[0].Source != "identity" {
		t.Errorf("rates = %+v", eval.Rates)
	}
}

func TestEvaluateMarket_QuoteFailure(t *testing.T) {
	f := newArbFixture(t, 1)
	_, err := f.svc.EvaluateMarket(context.Background(), domain.Market{ID: "x", InstrumentA: "pa", InstrumentB: "nope"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecord(t *testing.T) {
	f := newArbFixture(t, 1)
	eval, err := f.svc.EvaluateMarket(context.Background(), market1)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Record(context.Background(), eval); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(f.store.opps) != 2 {
		t.Errorf("stored %d, want 2", len(f.store.opps))
	}
	if msgs := f.bus.messages[ArbChannel]; len(msgs) != 2 {
		t.Errorf("published %d, want 2", len(msgs))
	} else {
		var opp domain.Opportunity
		if err := json.Unmarshal(msgs[1], &opp); err != nil || opp.ID != "opp-2" {
			t.Errorf("payload = %s (%v)", msgs[1], err)
		}
	}
	if len(f.audit.events) != 1 || f.audit.events[0] != "evaluation" {
		t.Errorf("audit = %v", f.audit.events)
	}
	if len(f.notifier.opps) != 1 || f.notifier.opps[0].ID != "opp-2" {
		t.Errorf("notified = %+v", f.notifier.opps)
	}
	if f.notifier.fallbacks != 1 {
		t.Errorf("fallback alerts = %d, want 1", f.notifier.fallbacks)
	}
	if len(f.archiver.evals) != 1 {
		t.Errorf("archived = %d, want 1", len(f.archiver.evals))
	}
}

func TestRecord_ThresholdAndFailures(t *testing.T) {
	f := newArbFixture(t, 5)
	f.store.err = errors.New("db down")
	f.archiver.err = errors.New("bucket gone")

	eval, err := f.svc.EvaluateMarket(context.Background(), market1)
	if err != nil {
		t.Fatal(err)
	}
	err = f.svc.Record(context.Background(), eval)
	if err == nil {
		t.Fatal("expected joined sink error")
	}
	if len(f.bus.messages[ArbChannel]) != 2 {
		t.Error("bus skipped after store failure")
	}
	if len(f.notifier.opps) != 0 {
		t.Errorf("3%% opportunity notified under a 5%% threshold")
	}
}

func TestRecord_NoSinks(t *testing.T) {
	a, b := pairSources()
	svc := NewArbService(NewQuoteService(a, b, nil, testLogger()),
		NewRateService(nil, nil, RateConfig{Fallback: map[string]float64{"INR:USD": 0.012}}, testLogger()),
		Sinks{}, ArbConfig{}, testLogger())

	eval, err := svc.EvaluateMarket(context.Background(), market1)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Record(context.Background(), eval); err != nil {
		t.Errorf("Record with no sinks: %v", err)
	}
	opps, err := svc.ListRecent(context.Background(), 10)
	if err != nil || len(opps) != 0 {
		t.Errorf("ListRecent = %v, %v", opps, err)
	}
}

func TestEvaluateMarket_NoRate(t *testing.T) {
	a, b := pairSources()
	svc := NewArbService(NewQuoteService(a, b, nil, testLogger()),
		NewRateService(nil, nil, RateConfig{}, testLogger()),
		Sinks{}, ArbConfig{}, testLogger())

	if _, err := svc.EvaluateMarket(context.Background(), market1); !errors.Is(err, domain.ErrInvalidRate) {
		t.Fatalf("err = %v, want ErrInvalidRate", err)
	}
}
