package helius

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/constants"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/metrics"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/sirupsen/logrus"
)

// Client pages through the Helius enhanced transactions API for one wallet.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	pageSize   int
	maxPages   int
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

// ClientConfig holds configuration for the history client
type ClientConfig struct {
	BaseURL string
	APIKey  string
	// Timeout bounds every single page request.
	Timeout time.Duration
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// NewClient creates a new history client
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.helius.xyz"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		pageSize: constants.HistoryPageSize,
		maxPages: constants.HistoryMaxPages,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// HTTPError is returned for any non-2xx upstream response.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("helius http %d", e.StatusCode)
	}
	return fmt.Sprintf("helius http %d: %s", e.StatusCode, b)
}

// ProgressObserver receives a progress event after every fetched page.
type ProgressObserver interface {
	OnPage(progress models.FetchProgress)
}

// ProgressFunc adapts a plain function to ProgressObserver.
type ProgressFunc func(progress models.FetchProgress)

func (f ProgressFunc) OnPage(progress models.FetchProgress) { f(progress) }

// FetchOptions controls a single history fetch.
type FetchOptions struct {
	// UntilSignature stops paging once this signature is seen. Only the
	// records strictly newer than it are returned.
	UntilSignature string
	Progress       ProgressObserver
}

// FetchResult is the outcome of a history fetch, newest record first.
type FetchResult struct {
	Transactions []models.RawTransaction
	StoppedEarly bool
	TotalFetched int
}

// FetchHistory pages backwards through a wallet's history using the last
// record of each page as the "before" cursor. Paging stops at the until
// signature, at a short page, or after maxPages. Any upstream failure aborts
// the whole fetch.
func (c *Client) FetchHistory(ctx context.Context, address string, opts FetchOptions) (*FetchResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("helius api key not configured")
	}

	incremental := opts.UntilSignature != ""
	all := make([]models.RawTransaction, 0, c.pageSize)
	stoppedEarly := false
	before := ""

	for page := 0; page < c.maxPages; page++ {
		txns, err := c.fetchPage(ctx, address, before)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page+1, err)
		}
		c.metrics.RecordHistoryPage(incremental, len(txns))

		if len(txns) == 0 {
			break
		}

		if incremental {
			if idx := indexOfSignature(txns, opts.UntilSignature); idx >= 0 {
				all = append(all, txns[:idx]...)
				stoppedEarly = true
				c.report(opts.Progress, page+1, len(all), incremental)
				break
			}
		}

		all = append(all, txns...)
		before = txns[len(txns)-1].Signature
		c.report(opts.Progress, page+1, len(all), incremental)

		if len(txns) < c.pageSize {
			break
		}
	}

	c.logger.WithFields(logrus.Fields{
		"wallet":        models.ShortAddress(address),
		"fetched":       len(all),
		"incremental":   incremental,
		"stopped_early": stoppedEarly,
	}).Info("fetched transaction history")

	return &FetchResult{
		Transactions: all,
		StoppedEarly: stoppedEarly,
		TotalFetched: len(all),
	}, nil
}

func (c *Client) report(obs ProgressObserver, page, loaded int, incremental bool) {
	c.logger.WithFields(logrus.Fields{
		"page":   page,
		"loaded": loaded,
	}).Debug("history page fetched")

	if obs == nil {
		return
	}
	obs.OnPage(models.FetchProgress{
		CurrentPage:        page,
		TransactionsLoaded: loaded,
		IsIncremental:      incremental,
	})
}

func indexOfSignature(txns []models.RawTransaction, sig string) int {
	for i := range txns {
		if txns[i].Signature == sig {
			return i
		}
	}
	return -1
}

// fetchPage retrieves a single page of enhanced transactions.
func (c *Client) fetchPage(ctx context.Context, address, before string) ([]models.RawTransaction, error) {
	endpoint := fmt.Sprintf("%s/v0/addresses/%s/transactions", c.baseURL, url.PathEscape(address))

	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("limit", strconv.Itoa(c.pageSize))
	if before != "" {
		params.Set("before", before)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamCall("helius", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordUpstreamCall("helius", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordUpstreamCall("helius", "error", time.Since(start).Seconds())
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}
	c.metrics.RecordUpstreamCall("helius", "success", time.Since(start).Seconds())

	var txns []models.RawTransaction
	if err := json.Unmarshal(body, &txns); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return txns, nil
}
