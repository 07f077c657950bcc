package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

type recordingSender struct {
	name   string
	titles []string
	err    error
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierFilter(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventArbDetected, " "}, discardLogger())

	if err := n.Notify(context.Background(), EventError, "dropped", "x"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := n.Notify(context.Background(), EventArbDetected, "kept", "x"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.titles) != 1 || s.titles[0] != "kept" {
		t.Errorf("titles = %v, want [kept]", s.titles)
	}
}

func TestNotifierNoFilterAllowsAll(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, discardLogger())
	_ = n.NotifyError(context.Background(), "monitor", errors.New("boom"))
	_ = n.NotifyFallback(context.Background(), domain.ExchangeRate{From: "INR", To: "USD", Rate: 0.012, Fallback: true})
	if len(s.titles) != 2 {
		t.Errorf("titles = %v", s.titles)
	}
}

func TestNotifierJoinsErrors(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), EventError, "t", "m")
	if err == nil || !strings.Contains(err.Error(), "bad: down") {
		t.Fatalf("err = %v", err)
	}
	if len(good.titles) != 1 {
		t.Error("later sender skipped after failure")
	}
}

func TestNilNotifier(t *testing.T) {
	var n *Notifier
	if n.Enabled() {
		t.Error("nil notifier reports enabled")
	}
	if err := n.NotifyOpportunity(context.Background(), domain.Opportunity{}); err != nil {
		t.Errorf("nil notifier: %v", err)
	}
}

func TestFormatOpportunity(t *testing.T) {
	local := decimal.NewFromInt(38)
	opp := domain.Opportunity{
		MarketID:         "m1",
		BuyPlatform:      "mock",
		SellPlatform:     "polymarket",
		BuyPrice:         decimal.RequireFromString("0.456"),
		BuyPriceLocal:    &local,
		SellPrice:        decimal.RequireFromString("0.47"),
		Profit:           decimal.RequireFromString("0.014"),
		ProfitPercentage: decimal.RequireFromString("3.0701754"),
		BuySize:          decimal.NewFromInt(100),
		RateFallback:     true,
	}
	got := FormatOpportunity(opp)
	for _, want := range []string{"Buy mock @ 0.4560 (local 38)", "Sell polymarket @ 0.4700", "Profit 0.0140 (3.07%)", "fallback FX rate"} {
		if !strings.Contains(got, want) {
			t.Errorf("message missing %q:\n%s", want, got)
		}
	}
}

func TestTelegramSender(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42").WithAPIBase(srv.URL)
	if err := s.Send(context.Background(), "A & B", "x < y"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if payload["chat_id"] != "42" || payload["parse_mode"] != "HTML" {
		t.Errorf("payload = %v", payload)
	}
	if text, _ := payload["text"].(string); !strings.Contains(text, "A &amp; B") || !strings.Contains(text, "x &lt; y") {
		t.Errorf("text not escaped: %q", text)
	}
}

func TestDiscordSender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Embeds []discordEmbed `json:"embeds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Embeds) != 1 || body.Embeds[0].Title != "hello" {
			t.Errorf("embeds = %+v", body.Embeds)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewDiscordSender(srv.URL).Send(context.Background(), "hello", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad webhook", http.StatusBadRequest)
	}))
	defer failing.Close()
	if err := NewDiscordSender(failing.URL).Send(context.Background(), "t", "m"); err == nil {
		t.Fatal("expected error on 400")
	}
}
