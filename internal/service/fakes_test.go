package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func level(price, size string) domain.PriceLevel {
	return domain.PriceLevel{Price: decimal.RequireFromString(price), Size: decimal.RequireFromString(size)}
}

type fakeSource struct {
	name, currency string
	books          map[string]domain.Orderbook
	err            error
}

func (f *fakeSource) Name() string     { return f.name }
func (f *fakeSource) Currency() string { return f.currency }

func (f *fakeSource) GetOrderbook(_ context.Context, id string) (domain.Orderbook, error) {
	if f.err != nil {
		return domain.Orderbook{}, f.err
	}
	ob, ok := f.books[id]
	if !ok {
		return domain.Orderbook{}, domain.ErrNotFound
	}
	return ob, nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	rate  float64
	err   error
	calls int
}

func (f *fakeFetcher) Rate(_ context.Context, from, to string) (domain.ExchangeRate, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return domain.ExchangeRate{}, f.err
	}
	return domain.ExchangeRate{From: from, To: to, Rate: f.rate, Source: "live", FetchedAt: time.Now()}, nil
}

type fakeRateCache struct {
	mu    sync.Mutex
	rates map[string]domain.ExchangeRate
	ttl   time.Duration
}

func (f *fakeRateCache) SetRate(_ context.Context, r domain.ExchangeRate, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rates == nil {
		f.rates = map[string]domain.ExchangeRate{}
	}
	f.rates[r.From+":"+r.To] = r
	f.ttl = ttl
	return nil
}

func (f *fakeRateCache) GetRate(_ context.Context, from, to string) (domain.ExchangeRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rates[from+":"+to]
	if !ok {
		return domain.ExchangeRate{}, domain.ErrNotFound
	}
	return r, nil
}

type fakeBookCache struct {
	mu    sync.Mutex
	snaps []domain.Snapshot
}

func (f *fakeBookCache) SetSnapshot(_ context.Context, s domain.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, s)
	return nil
}

func (f *fakeBookCache) GetSnapshot(context.Context, string, string) (domain.Snapshot, error) {
	return domain.Snapshot{}, domain.ErrNotFound
}

type fakeStore struct {
	mu   sync.Mutex
	opps []domain.Opportunity
	err  error
}

func (f *fakeStore) Insert(ctx context.Context, o domain.Opportunity) error {
	return f.InsertBatch(ctx, []domain.Opportunity{o})
}

func (f *fakeStore) InsertBatch(_ context.Context, opps []domain.Opportunity) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opps = append(f.opps, opps...)
	return nil
}

func (f *fakeStore) ListRecent(_ context.Context, limit int) ([]domain.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.opps) {
		limit = len(f.opps)
	}
	return append([]domain.Opportunity(nil), f.opps[:limit]...), nil
}

func (f *fakeStore) ListByMarket(_ context.Context, id string, _ domain.ListOpts) ([]domain.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Opportunity
	for _, o := range f.opps {
		if o.MarketID == id {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeBus struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (f *fakeBus) Publish(_ context.Context, ch string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messages == nil {
		f.messages = map[string][][]byte{}
	}
	f.messages[ch] = append(f.messages[ch], payload)
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	opps      []domain.Opportunity
	fallbacks int
	errs      int
}

func (f *fakeNotifier) NotifyOpportunity(_ context.Context, o domain.Opportunity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opps = append(f.opps, o)
	return nil
}

func (f *fakeNotifier) NotifyFallback(context.Context, domain.ExchangeRate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbacks++
	return nil
}

func (f *fakeNotifier) NotifyError(context.Context, string, error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs++
	return nil
}

type fakeArchiver struct {
	mu    sync.Mutex
	evals []domain.Evaluation
	err   error
}

func (f *fakeArchiver) ArchiveEvaluation(_ context.Context, e domain.Evaluation) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evals = append(f.evals, e)
	return "evaluations/" + e.MarketID, nil
}

type fakeLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func (f *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return nil, domain.ErrLockHeld
	}
	if f.held == nil {
		f.held = map[string]bool{}
	}
	f.held[key] = true
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.held, key)
	}, nil
}
