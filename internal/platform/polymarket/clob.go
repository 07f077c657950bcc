package polymarket

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

const (
	// Name is the platform label used in opportunities and cache keys.
	Name = "polymarket"
	// Currency is the settlement currency of Polymarket outcome tokens.
	Currency = "USD"
)

// ClobClient is the read-only REST client for the Polymarket CLOB (Central
// Limit Order Book) API. Only public market data endpoints are used.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// A zero timeout defaults to 10 seconds.
func NewClobClient(baseURL string, timeout time.Duration) *ClobClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ClobClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name implements service.OrderbookSource.
func (c *ClobClient) Name() string { return Name }

// Currency implements service.OrderbookSource.
func (c *ClobClient) Currency() string { return Currency }

// GetOrderbook fetches the book for one outcome token and returns it sorted
// and validated.
func (c *ClobClient) GetOrderbook(ctx context.Context, tokenID string) (domain.Orderbook, error) {
	path := "/book?" + url.Values{"token_id": {tokenID}}.Encode()

	respBody, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return domain.Orderbook{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var book BookResponse
	if err := json.Unmarshal(respBody, &book); err != nil {
		return domain.Orderbook{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}

	ob, err := book.ToDomainOrderbook()
	if err != nil {
		return domain.Orderbook{}, fmt.Errorf("polymarket/clob: book %s: %w", tokenID, err)
	}
	return ob, nil
}

// doRequest sends an unauthenticated request against the CLOB API and returns
// the raw response body.
func (c *ClobClient) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
