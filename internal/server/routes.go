package server

import (
	"net/http"
	"time"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/metrics"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	// Apply global middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(metrics.EchoMiddleware(h.Metrics))
	e.Use(SetNoCacheHeaders) // Prevent caching of API responses

	// Prometheus scrape endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/health", h.Health, SetJSONContentType) // Health check endpoint

	// Wallet routes: JSON, optional API key, per-client rate limit since an
	// analysis can walk up to 50 upstream pages
	wallet := []echo.MiddlewareFunc{SetJSONContentType}
	if cfg.APIKey != "" {
		wallet = append(wallet, middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key", // Look for API key in X-API-Key header
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil // Simple string comparison
			},
		}))
	}
	wallet = append(wallet, middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.rateLimit()), // Requests per second per client
		Burst:     cfg.rateBurst(),
		ExpiresIn: 3 * time.Minute, // Rate limit window
	})))
	e.GET("/wallet-analysis", h.WalletAnalysis, wallet...)
	e.GET("/wallet-holdings", h.WalletHoldings, wallet...)

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
