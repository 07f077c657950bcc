package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func TestKeysFor(t *testing.T) {
	k := keysFor("kalshi", "PRES-24")
	if k.bids != "book:kalshi:PRES-24:bids" || k.askSize != "book:kalshi:PRES-24:ask:size" {
		t.Errorf("keys = %+v", k)
	}
	if len(k.all()) != 5 {
		t.Errorf("all() = %d keys, want 5", len(k.all()))
	}
	if got := rateKey("inr", "usd"); got != "fx:INR:USD" {
		t.Errorf("rateKey = %s", got)
	}
	if got := lockKey("scan:m1"); got != "lock:scan:m1" {
		t.Errorf("lockKey = %s", got)
	}
}

func TestLevelsFromZ(t *testing.T) {
	zs := []redis.Z{
		{Score: 0.45, Member: "0.45"},
		{Score: 0.44, Member: "0.44"},
		{Score: 0.43, Member: "0.43"}, // no size entry
		{Score: 1, Member: 1},         // not a string
	}
	sizes := map[string]string{"0.45": "100", "0.44": "2.5"}

	levels, err := levelsFromZ(zs, sizes)
	if err != nil {
		t.Fatalf("levelsFromZ: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("len = %d, want 2", len(levels))
	}
	if levels[0].Price.String() != "0.45" || levels[1].Size.String() != "2.5" {
		t.Errorf("levels = %+v", levels)
	}

	if _, err := levelsFromZ([]redis.Z{{Member: "x"}}, map[string]string{"x": "1"}); err == nil {
		t.Error("expected parse error for bad price")
	}
}

func TestRateRoundTrip(t *testing.T) {
	in := domain.ExchangeRate{From: "INR", To: "USD", Rate: 0.0119, Source: "open.er-api", FetchedAt: time.Unix(1700000000, 0).UTC()}
	enc := encodeRate(in)

	vals := make(map[string]string, len(enc))
	for k, v := range enc {
		vals[k] = v.(string)
	}
	out, err := decodeRate("INR", "USD", vals)
	if err != nil {
		t.Fatalf("decodeRate: %v", err)
	}
	if out != in {
		t.Errorf("decoded = %+v, want %+v", out, in)
	}

	if _, err := decodeRate("INR", "USD", map[string]string{"source": "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing rate err = %v", err)
	}
	if _, err := decodeRate("INR", "USD", map[string]string{"rate": "0"}); !errors.Is(err, domain.ErrInvalidRate) {
		t.Errorf("zero rate err = %v", err)
	}
}

func TestOptions(t *testing.T) {
	opts, err := options(ClientConfig{Addr: "redis://:secret@cache:6380/2", PoolSize: 7})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.Password != "secret" || opts.PoolSize != 7 {
		t.Errorf("opts = %+v", opts)
	}

	opts, err = options(ClientConfig{Addr: "localhost:6379", TLSEnabled: true})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.TLSConfig == nil {
		t.Error("TLS config not set")
	}

	if _, err := options(ClientConfig{Addr: "redis://host:notaport/x"}); err == nil {
		t.Error("expected parse error")
	}
}
