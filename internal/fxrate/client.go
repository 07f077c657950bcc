// Package fxrate fetches live currency exchange rates from an open
// exchange-rate JSON API.
package fxrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// SourceName is recorded on every rate this client returns.
const SourceName = "open.er-api"

// Client is the REST client for the rate API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// latestResponse is the payload of GET /latest/{base}.
type latestResponse struct {
	Result         string             `json:"result"`
	BaseCode       string             `json:"base_code"`
	TimeLastUpdate int64              `json:"time_last_update_unix"`
	Rates          map[string]float64 `json:"rates"`
	ErrorType      string             `json:"error-type"`
}

// NewClient creates a rate client. baseURL is the API root, e.g.
// "https://open.er-api.com/v6".
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Rate returns how many units of to one unit of from buys.
func (c *Client) Rate(ctx context.Context, from, to string) (domain.ExchangeRate, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest/"+url.PathEscape(from), nil)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("fxrate: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("fxrate: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("fxrate: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ExchangeRate{}, fmt.Errorf("fxrate: %w", domain.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return domain.ExchangeRate{}, fmt.Errorf("fxrate: base %s: %w", from, domain.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.ExchangeRate{}, fmt.Errorf("fxrate: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var latest latestResponse
	if err := json.Unmarshal(body, &latest); err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("fxrate: decode response: %w", err)
	}
	if latest.Result != "success" {
		return domain.ExchangeRate{}, fmt.Errorf("fxrate: upstream result %q (%s)", latest.Result, latest.ErrorType)
	}

	rate, ok := latest.Rates[to]
	if !ok {
		return domain.ExchangeRate{}, fmt.Errorf("fxrate: %s->%s: %w", from, to, domain.ErrNotFound)
	}
	if err := domain.ValidateRate(rate); err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("fxrate: %s->%s: %w", from, to, err)
	}

	fetched := time.Now().UTC()
	if latest.TimeLastUpdate > 0 {
		fetched = time.Unix(latest.TimeLastUpdate, 0).UTC()
	}

	return domain.ExchangeRate{
		From:      from,
		To:        to,
		Rate:      rate,
		Source:    SourceName,
		FetchedAt: fetched,
	}, nil
}
