package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// MarketService lists the configured market pairs.
type MarketService interface {
	List(ctx context.Context) []domain.Market
	Get(ctx context.Context, id string) (domain.Market, error)
}

// Evaluator runs a live evaluation of one market.
type Evaluator interface {
	EvaluateMarket(ctx context.Context, market domain.Market) (domain.Evaluation, error)
}

// MarketHandler serves the market list and live evaluations.
type MarketHandler struct {
	markets MarketService
	eval    Evaluator
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, eval Evaluator, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, eval: eval, logger: logger}
}

type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Total   int             `json:"total"`
}

// ListMarkets returns every configured market pair.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets := h.markets.List(r.Context())
	writeJSON(w, http.StatusOK, listMarketsResponse{Markets: markets, Total: len(markets)})
}

// EvaluateMarket fetches both books and evaluates the pair without recording
// the result.
// GET /api/markets/{id}/evaluate
func (h *MarketHandler) EvaluateMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	market, err := h.markets.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}

	eval, err := h.eval.EvaluateMarket(r.Context(), market)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: evaluate market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		code := statusFor(err)
		if code == http.StatusNotFound || code == http.StatusBadRequest {
			// Venue data problems are upstream failures.
			code = http.StatusBadGateway
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, eval)
}
