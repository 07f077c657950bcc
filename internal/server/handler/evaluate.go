package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbwatch/internal/arbitrage"
	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// EvaluateHandler runs the evaluator over caller-supplied books. No venue is
// contacted and nothing is recorded.
type EvaluateHandler struct {
	logger *slog.Logger
}

// NewEvaluateHandler creates an EvaluateHandler.
func NewEvaluateHandler(logger *slog.Logger) *EvaluateHandler {
	return &EvaluateHandler{logger: logger}
}

type evaluateRequest struct {
	MarketID string           `json:"market_id"`
	LabelA   string           `json:"label_a"`
	LabelB   string           `json:"label_b"`
	BookA    domain.Orderbook `json:"book_a"`
	BookB    domain.Orderbook `json:"book_b"`
	// RateA and RateB convert each book into the settlement currency. Omitted
	// means 1.
	RateA *float64 `json:"rate_a,omitempty"`
	RateB *float64 `json:"rate_b,omitempty"`
}

type evaluateResponse struct {
	Opportunities []domain.Opportunity `json:"opportunities"`
	Best          *domain.Opportunity  `json:"best"`
}

// Evaluate compares the two books in the request body.
// POST /api/evaluate
func (h *EvaluateHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.LabelA == "" {
		req.LabelA = "A"
	}
	if req.LabelB == "" {
		req.LabelB = "B"
	}
	if req.LabelA == req.LabelB {
		writeError(w, http.StatusBadRequest, "label_a and label_b must differ")
		return
	}

	opps, err := arbitrage.Evaluate(req.MarketID,
		arbitrage.Quote{Label: req.LabelA, Book: req.BookA, Rate: rateOrOne(req.RateA)},
		arbitrage.Quote{Label: req.LabelB, Book: req.BookB, Rate: rateOrOne(req.RateB)},
	)
	if err != nil {
		h.logger.DebugContext(r.Context(), "handler: evaluate rejected",
			slog.String("error", err.Error()),
		)
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := evaluateResponse{Opportunities: opps}
	if best, ok := arbitrage.SelectBest(opps); ok {
		resp.Best = &best
	}
	writeJSON(w, http.StatusOK, resp)
}

func rateOrOne(r *float64) float64 {
	if r == nil {
		return 1
	}
	return *r
}
