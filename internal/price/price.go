package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/constants"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/metrics"
)

// Source provides the native-currency (SOL) to USD reference rate.
type Source interface {
	SOLPriceUSD(ctx context.Context) (float64, error)
}

type HTTPError struct {
	API        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("%s http %d", e.API, e.StatusCode)
	}
	return fmt.Sprintf("%s http %d: %s", e.API, e.StatusCode, b)
}

// JupiterSource reads SOL/USD from the Jupiter price API.
type JupiterSource struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Metrics *metrics.Metrics
}

func NewJupiterSource(baseURL, apiKey string, timeout time.Duration) *JupiterSource {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://lite-api.jup.ag/price/v3"
	}
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &JupiterSource{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type jupiterPrice struct {
	USDPrice float64 `json:"usdPrice"`
}

func (s *JupiterSource) SOLPriceUSD(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Set("ids", constants.MintSOL)

	headers := map[string]string{}
	if s.APIKey != "" {
		headers["x-api-key"] = s.APIKey
	}

	body, err := getJSON(ctx, s.HTTP, s.Metrics, "jupiter", s.BaseURL+"?"+q.Encode(), headers)
	if err != nil {
		return 0, err
	}

	var out map[string]jupiterPrice
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("failed to decode jupiter price response: %w", err)
	}
	p, ok := out[constants.MintSOL]
	if !ok || p.USDPrice <= 0 {
		return 0, fmt.Errorf("jupiter price response has no SOL price")
	}
	return p.USDPrice, nil
}

// CoinGeckoSource reads SOL/USD from the CoinGecko simple price API.
type CoinGeckoSource struct {
	BaseURL string
	HTTP    *http.Client
	Metrics *metrics.Metrics
}

func NewCoinGeckoSource(baseURL string, timeout time.Duration) *CoinGeckoSource {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &CoinGeckoSource{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (s *CoinGeckoSource) SOLPriceUSD(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Set("ids", "solana")
	q.Set("vs_currencies", "usd")

	body, err := getJSON(ctx, s.HTTP, s.Metrics, "coingecko", s.BaseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}

	var out struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("failed to decode coingecko price response: %w", err)
	}
	if out.Solana.USD <= 0 {
		return 0, fmt.Errorf("coingecko price response has no SOL price")
	}
	return out.Solana.USD, nil
}

func getJSON(ctx context.Context, client *http.Client, m *metrics.Metrics, api, u string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	res, err := client.Do(req)
	if err != nil {
		m.RecordUpstreamCall(api, "error", time.Since(start).Seconds())
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		m.RecordUpstreamCall(api, "error", time.Since(start).Seconds())
		return nil, &HTTPError{API: api, StatusCode: res.StatusCode, Body: body}
	}
	m.RecordUpstreamCall(api, "success", time.Since(start).Seconds())
	return body, nil
}

// New picks a source by name ("jupiter" or "coingecko").
func New(name, jupiterURL, jupiterKey, coingeckoURL string, timeout time.Duration, m *metrics.Metrics) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "jupiter":
		s := NewJupiterSource(jupiterURL, jupiterKey, timeout)
		s.Metrics = m
		return s, nil
	case "coingecko":
		s := NewCoinGeckoSource(coingeckoURL, timeout)
		s.Metrics = m
		return s, nil
	default:
		return nil, fmt.Errorf("unknown price source: %s", name)
	}
}
