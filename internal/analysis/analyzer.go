package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/helius"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/metrics"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/price"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrUpstreamUnavailable wraps any history or price failure.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// HistoryFetcher pages through a wallet's raw transaction history.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, address string, opts helius.FetchOptions) (*helius.FetchResult, error)
}

type Options struct {
	// UntilSignature turns the run into an incremental fetch.
	UntilSignature string
	Progress       helius.ProgressObserver
}

// Analyzer runs fetch, classify and aggregate for one wallet.
type Analyzer struct {
	history    HistoryFetcher
	prices     price.Source
	classifier *Classifier
	logger     *logrus.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

type Config struct {
	History    HistoryFetcher
	Prices     price.Source
	Classifier *Classifier
	Logger     *logrus.Logger
	Metrics    *metrics.Metrics
}

func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewClassifier("")
	}
	return &Analyzer{
		history:    cfg.History,
		prices:     cfg.Prices,
		classifier: cfg.Classifier,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        time.Now,
	}
}

// Analyze fetches the SOL price and the history concurrently, then classifies
// and aggregates. Either upstream failing fails the whole call.
func (a *Analyzer) Analyze(ctx context.Context, address string, opts Options) (*models.AnalysisResponse, error) {
	if err := models.ValidateAddress(address); err != nil {
		return nil, err
	}

	start := a.now()
	incremental := opts.UntilSignature != ""

	var (
		solPrice float64
		fetched  *helius.FetchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := a.prices.SOLPriceUSD(gctx)
		if err != nil {
			return fmt.Errorf("%w: sol price: %w", ErrUpstreamUnavailable, err)
		}
		solPrice = p
		return nil
	})
	g.Go(func() error {
		res, err := a.history.FetchHistory(gctx, address, helius.FetchOptions{
			UntilSignature: opts.UntilSignature,
			Progress:       opts.Progress,
		})
		if err != nil {
			return fmt.Errorf("%w: transaction history: %w", ErrUpstreamUnavailable, err)
		}
		fetched = res
		return nil
	})
	if err := g.Wait(); err != nil {
		a.metrics.RecordAnalysis("error", incremental, time.Since(start).Seconds())
		return nil, err
	}

	parsed := make([]models.ParsedTransaction, 0, len(fetched.Transactions))
	for _, raw := range fetched.Transactions {
		tx := a.classifier.Classify(raw, address, solPrice)
		if tx == nil {
			a.metrics.RecordClassified("skipped")
			continue
		}
		a.metrics.RecordClassified(string(tx.Type))
		if tx.Type == models.TxUnknown {
			continue
		}
		parsed = append(parsed, *tx)
	}

	summary := Summarize(address, parsed, a.now().UnixMilli())
	resp := &models.AnalysisResponse{
		WalletAnalysis: summary,
		FetchedCount:   fetched.TotalFetched,
		WasIncremental: fetched.StoppedEarly,
	}
	if len(summary.Transactions) > 0 {
		resp.NewestTxSignature = summary.Transactions[0].Signature
		resp.NewestTxTimestamp = summary.Transactions[0].Timestamp
	}

	outcome := "full"
	if resp.WasIncremental {
		outcome = "incremental"
	}
	a.metrics.RecordAnalysis(outcome, incremental, time.Since(start).Seconds())
	a.logger.WithFields(logrus.Fields{
		"wallet":       models.ShortAddress(address),
		"fetched":      fetched.TotalFetched,
		"parsed":       len(summary.Transactions),
		"incremental":  fetched.StoppedEarly,
		"sol_price":    solPrice,
		"avg_entry":    summary.WeightedAverageEntryPrice,
		"total_bought": summary.TotalBought,
		"total_sold":   summary.TotalSold,
	}).Info("wallet analyzed")

	return resp, nil
}
