package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/config"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/walletcache"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
)

func main() {
	_ = godotenv.Load()

	if err := newApp(config.Load(), os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(cfg *config.Config, out io.Writer) *cli.App {
	return &cli.App{
		Name:  "walletcli",
		Usage: "Analyze a wallet's trading history with a local incremental cache",
		Description: `Runs wallet analyses against the analyzer API. Results are cached
locally so repeated analyses only fetch transactions newer than the cache.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Writer:  out,
		Commands: []*cli.Command{
			analyzeCommand(),
			{
				Name:  "cache",
				Usage: "Local wallet cache commands",
				Subcommands: []*cli.Command{
					cacheListCommand(),
					cacheShowCommand(),
					cacheDeleteCommand(),
					cacheClearCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "Analyzer API URL",
				Value: cfg.AnalyzerURL,
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "Analyzer API key",
				Value: cfg.APIKey,
			},
			&cli.StringFlag{
				Name:  "cache-backend",
				Usage: "Local cache backend: sqlite, redis, memory or none",
				Value: cfg.WalletCacheBackend,
			},
			&cli.StringFlag{
				Name:  "cache-path",
				Usage: "SQLite cache file",
				Value: cfg.WalletCachePath,
			},
			&cli.StringFlag{
				Name:  "redis-addr",
				Usage: "Redis address for the redis cache backend",
				Value: cfg.RedisAddr,
			},
			&cli.IntFlag{
				Name:  "max-wallets",
				Usage: "Maximum number of wallets kept in the local cache",
				Value: cfg.MaxCachedWallets,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
			// no -v alias: urfave/cli reserves it for --version
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug output to stderr",
			},
		},
	}
}

func newLogger(c *cli.Context) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.WarnLevel)
	if c.Bool("verbose") {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// openStore opens the configured cache backend. It never fails: an unusable
// backend is replaced by a disabled cache. The returned func closes the store
// and any Redis client opened for it.
func openStore(c *cli.Context, logger *logrus.Logger) (walletcache.Store, func()) {
	cfg := walletcache.Config{
		Backend: c.String("cache-backend"),
		Path:    c.String("cache-path"),
		Options: walletcache.Options{
			MaxWallets: c.Int("max-wallets"),
			Logger:     logger,
		},
	}
	if strings.EqualFold(cfg.Backend, walletcache.BackendRedis) && c.String("redis-addr") != "" {
		cfg.Redis = redis.NewClient(&redis.Options{Addr: c.String("redis-addr")})
	}
	return openCache(c.Context, cfg, logger)
}

func openCache(ctx context.Context, cfg walletcache.Config, logger *logrus.Logger) (walletcache.Store, func()) {
	store := walletcache.Open(ctx, cfg)
	return store, func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("failed to close wallet cache")
		}
		if cfg.Redis != nil {
			_ = cfg.Redis.Close()
		}
	}
}
