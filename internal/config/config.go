package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/constants"
)

type Config struct {
	// API server
	APIAddr string
	APIKey  string
	DevMode bool

	// Helius settings
	HeliusAPIKey  string
	HeliusBaseURL string
	HeliusRPCURL  string

	TokenMint string

	// Price reference
	PriceSource      string
	JupiterBaseURL   string
	JupiterAPIKey    string
	CoinGeckoBaseURL string

	UpstreamTimeout time.Duration
	AnalysisTimeout time.Duration

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Redis settings
	RedisAddr        string
	AnalysisCacheTTL time.Duration
	AnalysisStaleTTL time.Duration

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Client settings
	AnalyzerURL        string
	WalletCachePath    string
	WalletCacheBackend string
	MaxCachedWallets   int
}

func Load() *Config {
	heliusKey := getEnv("HELIUS_API_KEY", "")
	return &Config{
		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// Helius
		HeliusAPIKey:  heliusKey,
		HeliusBaseURL: getEnv("HELIUS_BASE_URL", "https://api.helius.xyz"),
		HeliusRPCURL:  getEnv("HELIUS_RPC_URL", defaultRPCURL(heliusKey)),

		TokenMint: getEnv("TOKEN_MINT", constants.DefaultTokenMint),

		// Price
		PriceSource:      getEnv("PRICE_SOURCE", "jupiter"),
		JupiterBaseURL:   getEnv("JUPITER_BASE_URL", "https://lite-api.jup.ag/price/v3"),
		JupiterAPIKey:    getEnv("JUPITER_API_KEY", ""),
		CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),

		UpstreamTimeout: getDurationEnv("UPSTREAM_TIMEOUT", 20*time.Second),
		AnalysisTimeout: getDurationEnv("ANALYSIS_TIMEOUT", 90*time.Second),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 500*time.Millisecond),

		// Redis
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		AnalysisCacheTTL: getDurationEnv("ANALYSIS_CACHE_TTL", constants.DefaultAnalysisCacheTTL),
		AnalysisStaleTTL: getDurationEnv("ANALYSIS_STALE_TTL", constants.DefaultAnalysisStaleTTL),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "default"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Client
		AnalyzerURL:        getEnv("ANALYZER_URL", "http://localhost:8090"),
		WalletCachePath:    getEnv("WALLET_CACHE_PATH", "wallet-cache.db"),
		WalletCacheBackend: getEnv("WALLET_CACHE_BACKEND", "sqlite"),
		MaxCachedWallets:   getIntEnv("MAX_CACHED_WALLETS", constants.MaxCachedWallets),
	}
}

// Validate checks the settings the API server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HeliusAPIKey) == "" {
		errs = append(errs, errors.New("HELIUS_API_KEY is required"))
	}
	if c.HeliusRPCURL == "" {
		errs = append(errs, errors.New("HELIUS_RPC_URL is required"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	if c.AnalysisTimeout < c.UpstreamTimeout {
		errs = append(errs, fmt.Errorf("ANALYSIS_TIMEOUT (%s) must be at least UPSTREAM_TIMEOUT (%s)", c.AnalysisTimeout, c.UpstreamTimeout))
	}
	if c.AnalysisStaleTTL < c.AnalysisCacheTTL {
		errs = append(errs, errors.New("ANALYSIS_STALE_TTL must be at least ANALYSIS_CACHE_TTL"))
	}
	switch strings.ToLower(c.PriceSource) {
	case "jupiter", "coingecko":
	default:
		errs = append(errs, fmt.Errorf("PRICE_SOURCE must be jupiter or coingecko, got %q", c.PriceSource))
	}
	return errors.Join(errs...)
}

func defaultRPCURL(heliusKey string) string {
	if heliusKey == "" {
		return ""
	}
	return "https://mainnet.helius-rpc.com/?api-key=" + heliusKey
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
