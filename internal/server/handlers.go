package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/analysis"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/metrics"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// WalletAnalyzer runs the fetch, classify and aggregate pipeline for a wallet
type WalletAnalyzer interface {
	Analyze(ctx context.Context, address string, opts analysis.Options) (*models.AnalysisResponse, error)
}

// HoldingsReader returns the current target-token balance of a wallet
type HoldingsReader interface {
	TokenBalance(ctx context.Context, owner string) (float64, error)
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Analyzer        WalletAnalyzer             // Transaction history analysis
	Holdings        HoldingsReader             // On-chain token balance lookup
	Cache           storage.AnalysisCache      // Recent full analyses (optional)
	Publisher       storage.AnalysisPublisher  // Analysis events (optional)
	Archive         storage.TransactionArchive // Transaction archive (optional)
	AnalysisTimeout time.Duration              // Upper bound for a single analysis
	DevMode         bool                       // Enable detailed error responses in development
	Logger          *logrus.Logger             // Structured logger
	Metrics         *metrics.Metrics           // Prometheus collectors (optional)

	sinks sync.WaitGroup
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) log(c echo.Context, address string) *logrus.Entry {
	return h.Logger.WithFields(logrus.Fields{
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		"wallet":     models.ShortAddress(address),
	})
}

// addressParam reads and validates the address query parameter.
// On failure the error response has already been written.
func (h *Handlers) addressParam(c echo.Context) (string, bool, error) {
	address := strings.TrimSpace(c.QueryParam("address"))
	if address == "" {
		return "", false, h.err(c, http.StatusBadRequest, msgMissingAddress, nil)
	}
	if err := models.ValidateAddress(address); err != nil {
		return "", false, h.err(c, http.StatusBadRequest, msgInvalidAddress, map[string]any{"address": address})
	}
	return address, true, nil
}

// Health reports liveness plus the reachability of optional sinks
func (h *Handlers) Health(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{OK: true}
	check := func(name string, ping func(context.Context) error) {
		if resp.Components == nil {
			resp.Components = make(map[string]string)
		}
		if err := ping(ctx); err != nil {
			resp.Components[name] = "unavailable"
			return
		}
		resp.Components[name] = "ok"
	}
	if h.Cache != nil {
		check("cache", h.Cache.Ping)
	}
	if h.Archive != nil {
		check("archive", h.Archive.Ping)
	}
	return c.JSON(http.StatusOK, resp)
}

// WalletAnalysis returns the buy/sell analysis of a wallet.
// With cachedNewestSignature only transactions newer than it are fetched and
// the caller merges them into its own cache. Full analyses are served from the
// analysis cache while fresh, and a stale copy is served if the upstream fails.
func (h *Handlers) WalletAnalysis(c echo.Context) error {
	address, ok, err := h.addressParam(c)
	if !ok {
		return err
	}

	cachedSig := strings.TrimSpace(c.QueryParam("cachedNewestSignature"))
	if cachedSig != "" {
		if err := models.ValidateSignature(cachedSig); err != nil {
			return h.err(c, http.StatusBadRequest, msgInvalidSignature, map[string]any{"err": err.Error()})
		}
	}
	incremental := cachedSig != ""
	logger := h.log(c, address)
	start := time.Now()

	var stale *models.AnalysisResponse
	if !incremental && h.Cache != nil {
		cached, fresh, err := h.Cache.Get(c.Request().Context(), address)
		switch {
		case err != nil:
			logger.WithError(err).Warn("analysis cache lookup failed")
			h.Metrics.RecordAnalysisCacheLookup("error")
		case cached != nil && fresh:
			h.Metrics.RecordAnalysisCacheLookup("hit")
			h.Metrics.RecordAnalysis("cached", false, time.Since(start).Seconds())
			logger.Debug("serving cached analysis")
			return c.JSON(http.StatusOK, cached)
		case cached != nil:
			h.Metrics.RecordAnalysisCacheLookup("stale")
			stale = cached
		default:
			h.Metrics.RecordAnalysisCacheLookup("miss")
		}
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), h.AnalysisTimeout)
	defer cancel()

	resp, err := h.Analyzer.Analyze(ctx, address, analysis.Options{UntilSignature: cachedSig})
	if err != nil {
		if errors.Is(err, models.ErrInvalidAddress) {
			return h.err(c, http.StatusBadRequest, msgInvalidAddress, nil)
		}
		if stale != nil {
			logger.WithError(err).Warn("analysis failed, serving stale cached analysis")
			h.Metrics.RecordAnalysis("stale", false, time.Since(start).Seconds())
			stale.Stale = true
			return c.JSON(http.StatusOK, stale)
		}
		logger.WithError(err).Error("analysis failed")
		return h.err(c, http.StatusBadGateway, msgAnalysisFailed, map[string]any{"err": err.Error()})
	}

	h.deliver(logger, resp, incremental)
	return c.JSON(http.StatusOK, resp)
}

// deliver hands a completed analysis to the optional sinks in the background.
// Sink failures are logged and never affect the response.
func (h *Handlers) deliver(logger *logrus.Entry, resp *models.AnalysisResponse, incremental bool) {
	if h.Cache == nil && h.Publisher == nil && h.Archive == nil {
		return
	}

	h.sinks.Add(1)
	go func() {
		defer h.sinks.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if h.Cache != nil && !incremental {
			if err := h.Cache.Set(ctx, resp); err != nil {
				logger.WithError(err).Warn("failed to cache analysis")
			}
		}
		if h.Publisher != nil {
			if err := h.Publisher.PublishAnalysis(ctx, resp.Event()); err != nil {
				logger.WithError(err).Warn("failed to publish analysis")
			}
		}
		if h.Archive != nil && len(resp.Transactions) > 0 {
			if err := h.Archive.InsertTransactions(ctx, resp.Address, resp.Transactions); err != nil {
				logger.WithError(err).Warn("failed to archive transactions")
			}
		}
	}()
}

// WaitSinks blocks until background sink deliveries have finished
func (h *Handlers) WaitSinks() {
	h.sinks.Wait()
}

// WalletHoldings returns the current target-token balance of a wallet
func (h *Handlers) WalletHoldings(c echo.Context) error {
	address, ok, err := h.addressParam(c)
	if !ok {
		return err
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), h.AnalysisTimeout)
	defer cancel()

	balance, err := h.Holdings.TokenBalance(ctx, address)
	if err != nil {
		h.log(c, address).WithError(err).Error("holdings lookup failed")
		return h.err(c, http.StatusBadGateway, msgHoldingsFailed, map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, models.HoldingsResponse{
		Address:   address,
		Balance:   balance,
		Timestamp: time.Now().UnixMilli(),
	})
}
