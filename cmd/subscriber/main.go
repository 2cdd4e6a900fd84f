package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/cache"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/constants"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// subscriber logs every wallet analysis the API server publishes
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	_ = godotenv.Load()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rclient := redis.NewClient(&redis.Options{Addr: addr})
	defer rclient.Close()
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	pubsub := cache.NewPubSubManager(rclient, logger)

	// Channels come from the arguments. Arguments containing '*' are patterns,
	// e.g. "wallet:analysis:*". Without arguments every analysis is logged once.
	channels := os.Args[1:]
	if len(channels) == 0 {
		channels = []string{constants.PubSubChannelAnalysisAll}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, channel := range channels {
		handler := logEvent(logger, channel)
		g.Go(func() error {
			if strings.Contains(channel, "*") {
				return pubsub.PSubscribe(gctx, channel, handler)
			}
			return pubsub.Subscribe(gctx, channel, handler)
		})
	}

	logger.WithFields(logrus.Fields{
		"redis":    addr,
		"channels": channels,
	}).Info("analysis subscriber running, press Ctrl+C to stop")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("subscription failed")
	}
	logger.Info("subscriber stopped")
}

func logEvent(logger *logrus.Logger, source string) func(*models.AnalysisEvent) {
	return func(e *models.AnalysisEvent) {
		logger.WithFields(logrus.Fields{
			"source":       source,
			"wallet":       models.ShortAddress(e.Address),
			"bought":       e.TotalBought,
			"sold":         e.TotalSold,
			"avg_entry":    e.WeightedAverageEntryPrice,
			"transactions": e.TransactionCount,
			"fetched":      e.FetchedCount,
			"incremental":  e.WasIncremental,
		}).Info("wallet analyzed")
	}
}
