package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/sirupsen/logrus"
)

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS wallet_transactions (
		wallet          String,
		signature       String,
		timestamp       DateTime64(3),
		type            LowCardinality(String),
		token_amount    Float64,
		quote_amount    Float64,
		quote_mint      LowCardinality(String),
		price_per_token Float64,
		archived_at     DateTime64(3)
	)
	ENGINE = ReplacingMergeTree(archived_at)
	ORDER BY (wallet, signature)
`

type Config struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseArchive appends classified transactions to ClickHouse. Rows are
// deduplicated per wallet and signature on merge.
type ClickHouseArchive struct {
	conn   driver.Conn
	logger *logrus.Logger
	now    func() time.Time
}

func NewClickHouseArchive(ctx context.Context, cfg Config) (*ClickHouseArchive, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	a := &ClickHouseArchive{conn: conn, logger: cfg.Logger, now: time.Now}
	if err := a.EnsureSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")

	return a, nil
}

func (a *ClickHouseArchive) EnsureSchema(ctx context.Context) error {
	if err := a.conn.Exec(ctx, createTableQuery); err != nil {
		return fmt.Errorf("failed to create wallet_transactions: %w", err)
	}
	return nil
}

type row struct {
	Wallet        string
	Signature     string
	Timestamp     time.Time
	Type          string
	TokenAmount   float64
	QuoteAmount   float64
	QuoteMint     string
	PricePerToken float64
	ArchivedAt    time.Time
}

func rowsFor(wallet string, txs []models.ParsedTransaction, archivedAt time.Time) []row {
	out := make([]row, 0, len(txs))
	for _, tx := range txs {
		out = append(out, row{
			Wallet:        wallet,
			Signature:     tx.Signature,
			Timestamp:     time.UnixMilli(tx.Timestamp).UTC(),
			Type:          string(tx.Type),
			TokenAmount:   tx.TokenAmount,
			QuoteAmount:   tx.QuoteAmount,
			QuoteMint:     tx.QuoteMint,
			PricePerToken: tx.PricePerToken,
			ArchivedAt:    archivedAt.UTC(),
		})
	}
	return out
}

func (a *ClickHouseArchive) InsertTransactions(ctx context.Context, wallet string, txs []models.ParsedTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, "INSERT INTO wallet_transactions")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, r := range rowsFor(wallet, txs, a.now()) {
		if err := batch.Append(
			r.Wallet,
			r.Signature,
			r.Timestamp,
			r.Type,
			r.TokenAmount,
			r.QuoteAmount,
			r.QuoteMint,
			r.PricePerToken,
			r.ArchivedAt,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append %s: %w", r.Signature, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert transactions: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"wallet": models.ShortAddress(wallet),
		"rows":   len(txs),
	}).Debug("archived transactions")
	return nil
}

// CountTransactions returns the archived rows for a wallet after dedup.
func (a *ClickHouseArchive) CountTransactions(ctx context.Context, wallet string) (uint64, error) {
	var n uint64
	if err := a.conn.QueryRow(ctx,
		"SELECT count() FROM wallet_transactions FINAL WHERE wallet = ?", wallet,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func (a *ClickHouseArchive) Ping(ctx context.Context) error {
	return a.conn.Ping(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return a.conn.Close()
}
