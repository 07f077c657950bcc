package handler

import (
	"net/http"
	"time"
)

// StatusHandler reports static runtime information.
type StatusHandler struct {
	Mode               string
	SettlementCurrency string
	PlatformA          string
	PlatformB          string
	StartedAt          time.Time
}

// GetStatus responds with the mode, platforms and uptime.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":                h.Mode,
		"settlement_currency": h.SettlementCurrency,
		"platform_a":          h.PlatformA,
		"platform_b":          h.PlatformB,
		"uptime_seconds":      int64(time.Since(h.StartedAt).Seconds()),
	})
}
