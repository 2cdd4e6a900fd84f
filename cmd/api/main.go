package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/analysis"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/archive"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/cache"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/config"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/helius"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/metrics"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/price"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/rpc"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/server"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the API server
// It initializes all dependencies and starts the HTTP server with graceful shutdown
func main() {
	// Initialize structured logger with custom formatting
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.DevMode {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	m := metrics.NewMetrics(nil)

	// Upstreams: transaction history, SOL reference price and holdings RPC
	history := helius.NewClient(helius.ClientConfig{
		BaseURL: cfg.HeliusBaseURL,
		APIKey:  cfg.HeliusAPIKey,
		Timeout: cfg.UpstreamTimeout,
		Logger:  logger,
		Metrics: m,
	})

	prices, err := price.New(cfg.PriceSource, cfg.JupiterBaseURL, cfg.JupiterAPIKey, cfg.CoinGeckoBaseURL, cfg.UpstreamTimeout, m)
	if err != nil {
		logger.WithError(err).Fatal("failed to create price source")
	}

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.HeliusRPCURL,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
		Metrics:      m,
	})

	analyzer := analysis.NewAnalyzer(analysis.Config{
		History:    history,
		Prices:     prices,
		Classifier: analysis.NewClassifier(cfg.TokenMint),
		Logger:     logger,
		Metrics:    m,
	})

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Analyzer:        analyzer,
		Holdings:        rpc.NewTokenBalanceReader(rpcClient, cfg.TokenMint),
		AnalysisTimeout: cfg.AnalysisTimeout,
		DevMode:         cfg.DevMode, // Enable detailed error responses in development
		Logger:          logger,      // Structured logger
		Metrics:         m,
	}

	ttls := cache.TTLs{Fresh: cfg.AnalysisCacheTTL, Stale: cfg.AnalysisStaleTTL}

	// Redis is optional: it backs the analysis cache and analysis events
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   0, // Use default database for main application
		})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unavailable, using in-process analysis cache")
			_ = rclient.Close()
		} else {
			analysisCache, err := cache.NewRedisAnalysisCache(rclient, ttls, logger)
			if err != nil {
				logger.WithError(err).Fatal("failed to create analysis cache")
			}
			defer func() {
				_ = analysisCache.Close()
			}()
			h.Cache = analysisCache
			h.Publisher = cache.NewPubSubManager(rclient, logger)
		}
	}
	if h.Cache == nil {
		h.Cache = cache.NewMemoryAnalysisCache(ttls)
	}

	// ClickHouse archive is optional
	if cfg.ClickHouseAddr != "" {
		a, err := archive.NewClickHouseArchive(ctx, archive.Config{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("transaction archive disabled")
		} else {
			defer func() {
				_ = a.Close()
			}()
			h.Archive = a
		}
	}

	// Create HTTP server with configuration and handlers
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr, // Server bind address (e.g., ":8090")
			DevMode: cfg.DevMode, // Development mode flag
			APIKey:  cfg.APIKey,  // Optional API key for authentication
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()                               // Cancel context to stop ongoing operations
		_ = srv.Shutdown(context.Background()) // Gracefully shutdown HTTP server
	}()

	// Start the HTTP server
	logger.WithFields(logrus.Fields{
		"addr":       cfg.APIAddr,
		"token_mint": cfg.TokenMint,
		"price":      cfg.PriceSource,
	}).Info("api server starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
