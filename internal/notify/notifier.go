// Package notify pushes alerts to chat channels (Telegram, Discord). The
// Notifier filters by event type so operators receive only what they opt in
// to.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Event types understood by the Notifier filter.
const (
	EventArbDetected  = "arb_detected"
	EventRateFallback = "rate_fallback"
	EventError        = "error"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that delivers to senders. Only events listed
// in events are forwarded; an empty list allows everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether at least one sender is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}

// Notify sends to all senders if event passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.Enabled() {
		return nil
	}
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyOpportunity formats opp as an arb_detected alert.
func (n *Notifier) NotifyOpportunity(ctx context.Context, opp domain.Opportunity) error {
	return n.Notify(ctx, EventArbDetected, "Arbitrage: "+opp.MarketID, FormatOpportunity(opp))
}

// NotifyFallback reports that a conversion used a configured constant instead
// of a live rate.
func (n *Notifier) NotifyFallback(ctx context.Context, rate domain.ExchangeRate) error {
	msg := fmt.Sprintf("Live %s->%s rate unavailable, using fallback %g", rate.From, rate.To, rate.Rate)
	return n.Notify(ctx, EventRateFallback, "FX fallback in use", msg)
}

// NotifyError reports a failure in the named component.
func (n *Notifier) NotifyError(ctx context.Context, component string, err error) error {
	return n.Notify(ctx, EventError, "Error in "+component, err.Error())
}

// FormatOpportunity renders opp as a short multi-line message.
func FormatOpportunity(opp domain.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Buy %s @ %s", opp.BuyPlatform, opp.BuyPrice.StringFixed(4))
	if opp.BuyPriceLocal != nil {
		fmt.Fprintf(&b, " (local %s)", opp.BuyPriceLocal.String())
	}
	fmt.Fprintf(&b, "\nSell %s @ %s", opp.SellPlatform, opp.SellPrice.StringFixed(4))
	if opp.SellPriceLocal != nil {
		fmt.Fprintf(&b, " (local %s)", opp.SellPriceLocal.String())
	}
	fmt.Fprintf(&b, "\nProfit %s (%s%%) size %s",
		opp.Profit.StringFixed(4), opp.ProfitPercentage.StringFixed(2), opp.BuySize.String())
	if opp.RateFallback {
		b.WriteString("\nWARNING: fallback FX rate")
	}
	return b.String()
}

// dispatch sends to every sender. One failure does not stop the rest; all
// errors are joined.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %w", errors.Join(errs...))
	}
	return nil
}
