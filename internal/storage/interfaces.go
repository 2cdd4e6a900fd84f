package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
)

// AnalysisCache holds recent full analyses served by the API
type AnalysisCache interface {
	// Get returns the cached response and whether it is still fresh.
	// A missing entry yields nil, false, nil.
	Get(ctx context.Context, address string) (*models.AnalysisResponse, bool, error)

	// Set stores a completed full analysis
	Set(ctx context.Context, resp *models.AnalysisResponse) error

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// AnalysisPublisher fans completed analyses out to subscribers
type AnalysisPublisher interface {
	PublishAnalysis(ctx context.Context, event *models.AnalysisEvent) error
}

// TransactionArchive is an append-only sink for classified transactions
type TransactionArchive interface {
	InsertTransactions(ctx context.Context, wallet string, txs []models.ParsedTransaction) error

	// Ping checks if the archive is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// AnalysisHandler processes analysis events received from Pub/Sub
type AnalysisHandler func(*models.AnalysisEvent)
