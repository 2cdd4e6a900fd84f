package walletcache

import (
	"context"
	"errors"
	"sort"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
)

// ErrUnavailable is returned when a backend fails to initialize. Callers fall
// back to Disabled, which behaves like a permanently cold cache.
var ErrUnavailable = errors.New("wallet cache unavailable")

// Store is the per-wallet transaction cache used for incremental analysis.
type Store interface {
	// GetWalletMetadata returns nil, nil when the wallet is not cached.
	GetWalletMetadata(ctx context.Context, address string) (*models.WalletMetadata, error)
	// SaveWalletMetadata evicts least recently fetched wallets first when the
	// store is full and the wallet is new.
	SaveWalletMetadata(ctx context.Context, meta models.WalletMetadata) error
	// SaveWallet writes txs and meta as one unit, with the same eviction as
	// SaveWalletMetadata. Readers never see meta without its transactions.
	SaveWallet(ctx context.Context, meta models.WalletMetadata, txs []models.CachedTransaction) error
	GetWalletTransactions(ctx context.Context, address string) ([]models.CachedTransaction, error)
	// SaveTransactions upserts by compound id.
	SaveTransactions(ctx context.Context, txs []models.CachedTransaction) error
	ListWallets(ctx context.Context) ([]models.WalletMetadata, error)
	DeleteWalletCache(ctx context.Context, address string) error
	ClearAllCache(ctx context.Context) error
	Available() bool
	Close() error
}

// evictionVictims picks the wallets to drop so that incoming fits under max.
// Oldest lastFetchedAt goes first; address breaks ties.
func evictionVictims(cached []models.WalletMetadata, incoming string, max int) []string {
	if max <= 0 {
		return nil
	}
	for _, m := range cached {
		if m.Address == incoming {
			return nil
		}
	}
	n := len(cached) - max + 1
	if n <= 0 {
		return nil
	}

	sorted := make([]models.WalletMetadata, len(cached))
	copy(sorted, cached)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].LastFetchedAt != sorted[j].LastFetchedAt {
			return sorted[i].LastFetchedAt < sorted[j].LastFetchedAt
		}
		return sorted[i].Address < sorted[j].Address
	})

	out := make([]string, 0, n)
	for _, m := range sorted[:n] {
		out = append(out, m.Address)
	}
	return out
}

// Disabled is the no-op store used when no persistence is available.
type Disabled struct{}

func (Disabled) GetWalletMetadata(context.Context, string) (*models.WalletMetadata, error) {
	return nil, nil
}
func (Disabled) SaveWalletMetadata(context.Context, models.WalletMetadata) error { return nil }
func (Disabled) SaveWallet(context.Context, models.WalletMetadata, []models.CachedTransaction) error {
	return nil
}
func (Disabled) GetWalletTransactions(context.Context, string) ([]models.CachedTransaction, error) {
	return nil, nil
}
func (Disabled) SaveTransactions(context.Context, []models.CachedTransaction) error { return nil }
func (Disabled) ListWallets(context.Context) ([]models.WalletMetadata, error) { return nil, nil }
func (Disabled) DeleteWalletCache(context.Context, string) error { return nil }
func (Disabled) ClearAllCache(context.Context) error { return nil }
func (Disabled) Available() bool { return false }
func (Disabled) Close() error { return nil }
