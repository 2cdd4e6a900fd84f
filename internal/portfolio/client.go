package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
)

// APIError is a non-2xx answer from the analyzer service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("analyzer http %d", e.StatusCode)
	}
	return fmt.Sprintf("analyzer http %d: %s", e.StatusCode, e.Message)
}

// Client calls the analyzer HTTP API.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Analyze requests a wallet analysis. A non-empty cachedNewestSignature asks
// the server for an incremental fetch.
func (c *Client) Analyze(ctx context.Context, address, cachedNewestSignature string) (*models.AnalysisResponse, error) {
	q := url.Values{}
	q.Set("address", address)
	if cachedNewestSignature != "" {
		q.Set("cachedNewestSignature", cachedNewestSignature)
	}

	var out models.AnalysisResponse
	if err := c.get(ctx, "/wallet-analysis?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Holdings(ctx context.Context, address string) (*models.HoldingsResponse, error) {
	q := url.Values{}
	q.Set("address", address)

	var out models.HoldingsResponse
	if err := c.get(ctx, "/wallet-holdings?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: res.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode analyzer response: %w", err)
	}
	return nil
}
