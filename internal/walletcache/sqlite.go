package walletcache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/constants"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/metrics"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists the cache in a local SQLite file.
type SQLiteStore struct {
	db         *sql.DB
	maxWallets int
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

// NewSQLiteStore opens the database at path and applies pending migrations.
func NewSQLiteStore(path string, opts Options) (*SQLiteStore, error) {
	opts = opts.withDefaults()
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", ErrUnavailable)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrUnavailable, err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %w", ErrUnavailable, err)
	}

	if err := runMigrations(db, opts.Logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	opts.Logger.WithField("path", path).Info("wallet cache opened")

	return &SQLiteStore{
		db:         db,
		maxWallets: opts.MaxWallets,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}, nil
}

func runMigrations(db *sql.DB, logger *logrus.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}

	// m.Close would close db as well, so the instance is left to the GC.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("schema version: %w", err)
	}
	if dirty || version != constants.CacheSchemaVersion {
		return fmt.Errorf("unexpected schema version %d (dirty=%t)", version, dirty)
	}
	logger.WithField("version", version).Debug("wallet cache schema ready")
	return nil
}

func (s *SQLiteStore) GetWalletMetadata(ctx context.Context, address string) (*models.WalletMetadata, error) {
	var m models.WalletMetadata
	err := s.db.QueryRowContext(ctx, `
		SELECT address, last_fetched_at, newest_tx_signature, newest_tx_timestamp, total_cached_tx_count
		FROM wallets WHERE address = ?`, address,
	).Scan(&m.Address, &m.LastFetchedAt, &m.NewestTxSignature, &m.NewestTxTimestamp, &m.TotalCachedTxCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet metadata: %w", err)
	}
	return &m, nil
}

func (s *SQLiteStore) SaveWalletMetadata(ctx context.Context, meta models.WalletMetadata) error {
	return s.save(ctx, meta, nil)
}

// SaveWallet upserts txs and then meta in one transaction, evicting other
// wallets first when the store is full.
func (s *SQLiteStore) SaveWallet(ctx context.Context, meta models.WalletMetadata, txs []models.CachedTransaction) error {
	return s.save(ctx, meta, txs)
}

func (s *SQLiteStore) save(ctx context.Context, meta models.WalletMetadata, txs []models.CachedTransaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cached, err := listWallets(ctx, tx)
	if err != nil {
		return err
	}
	victims := evictionVictims(cached, meta.Address, s.maxWallets)
	for _, addr := range victims {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE wallet_address = ?`, addr); err != nil {
			return fmt.Errorf("evict transactions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM wallets WHERE address = ?`, addr); err != nil {
			return fmt.Errorf("evict wallet: %w", err)
		}
	}

	if err := upsertTransactions(ctx, tx, txs); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallets (address, last_fetched_at, newest_tx_signature, newest_tx_timestamp, total_cached_tx_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			last_fetched_at = excluded.last_fetched_at,
			newest_tx_signature = excluded.newest_tx_signature,
			newest_tx_timestamp = excluded.newest_tx_timestamp,
			total_cached_tx_count = excluded.total_cached_tx_count`,
		meta.Address, meta.LastFetchedAt, meta.NewestTxSignature, meta.NewestTxTimestamp, meta.TotalCachedTxCount,
	)
	if err != nil {
		return fmt.Errorf("save wallet metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if len(victims) > 0 {
		s.metrics.RecordWalletEvictions(len(victims))
		s.logger.WithField("evicted", victims).Info("evicted wallets from cache")
	}
	return nil
}

func (s *SQLiteStore) GetWalletTransactions(ctx context.Context, address string) ([]models.CachedTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wallet_address, signature, timestamp, type, token_amount, quote_amount, quote_mint, price_per_token
		FROM transactions WHERE wallet_address = ?`, address)
	if err != nil {
		return nil, fmt.Errorf("get wallet transactions: %w", err)
	}
	defer rows.Close()

	out := make([]models.CachedTransaction, 0)
	for rows.Next() {
		var tx models.CachedTransaction
		var typ string
		if err := rows.Scan(&tx.ID, &tx.WalletAddress, &tx.Signature, &tx.Timestamp, &typ,
			&tx.TokenAmount, &tx.QuoteAmount, &tx.QuoteMint, &tx.PricePerToken); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = models.TxType(typ)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveTransactions(ctx context.Context, txs []models.CachedTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertTransactions(ctx, tx, txs); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertTransactions(ctx context.Context, tx *sql.Tx, txs []models.CachedTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, wallet_address, signature, timestamp, type, token_amount, quote_amount, quote_mint, price_per_token)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			timestamp = excluded.timestamp,
			type = excluded.type,
			token_amount = excluded.token_amount,
			quote_amount = excluded.quote_amount,
			quote_mint = excluded.quote_mint,
			price_per_token = excluded.price_per_token`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		if _, err := stmt.ExecContext(ctx, t.ID, t.WalletAddress, t.Signature, t.Timestamp, string(t.Type),
			t.TokenAmount, t.QuoteAmount, t.QuoteMint, t.PricePerToken); err != nil {
			return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) ListWallets(ctx context.Context) ([]models.WalletMetadata, error) {
	out, err := listWallets(ctx, s.db)
	if err != nil {
		return nil, err
	}
	sortByLastFetched(out)
	return out, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listWallets(ctx context.Context, q querier) ([]models.WalletMetadata, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT address, last_fetched_at, newest_tx_signature, newest_tx_timestamp, total_cached_tx_count
		FROM wallets`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	out := make([]models.WalletMetadata, 0)
	for rows.Next() {
		var m models.WalletMetadata
		if err := rows.Scan(&m.Address, &m.LastFetchedAt, &m.NewestTxSignature, &m.NewestTxTimestamp, &m.TotalCachedTxCount); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteWalletCache(ctx context.Context, address string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE wallet_address = ?`, address); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM wallets WHERE address = ?`, address); err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) ClearAllCache(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM wallets`); err != nil {
		return fmt.Errorf("clear wallets: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Available() bool { return true }

func (s *SQLiteStore) Close() error { return s.db.Close() }
