package walletcache

import (
	"context"
	"sort"
	"sync"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/constants"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/metrics"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/sirupsen/logrus"
)

// MemoryStore keeps the cache in process memory. It is lost on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	wallets    map[string]models.WalletMetadata
	txs        map[string]map[string]models.CachedTransaction // wallet -> id -> tx
	maxWallets int
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

func NewMemoryStore(opts Options) *MemoryStore {
	opts = opts.withDefaults()
	return &MemoryStore{
		wallets:    make(map[string]models.WalletMetadata),
		txs:        make(map[string]map[string]models.CachedTransaction),
		maxWallets: opts.MaxWallets,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

func (s *MemoryStore) GetWalletMetadata(_ context.Context, address string) (*models.WalletMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.wallets[address]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *MemoryStore) SaveWalletMetadata(_ context.Context, meta models.WalletMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictFor(meta.Address)
	s.wallets[meta.Address] = meta
	return nil
}

// SaveWallet stores txs and meta under one lock.
func (s *MemoryStore) SaveWallet(_ context.Context, meta models.WalletMetadata, txs []models.CachedTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictFor(meta.Address)
	s.putTransactions(txs)
	s.wallets[meta.Address] = meta
	return nil
}

// evictFor must be called with mu held.
func (s *MemoryStore) evictFor(address string) {
	cached := make([]models.WalletMetadata, 0, len(s.wallets))
	for _, m := range s.wallets {
		cached = append(cached, m)
	}
	victims := evictionVictims(cached, address, s.maxWallets)
	for _, addr := range victims {
		delete(s.wallets, addr)
		delete(s.txs, addr)
	}
	if len(victims) > 0 {
		s.metrics.RecordWalletEvictions(len(victims))
		s.logger.WithField("evicted", victims).Info("evicted wallets from cache")
	}
}

func (s *MemoryStore) GetWalletTransactions(_ context.Context, address string) ([]models.CachedTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.txs[address]
	out := make([]models.CachedTransaction, 0, len(byID))
	for _, tx := range byID {
		out = append(out, tx)
	}
	return out, nil
}

func (s *MemoryStore) SaveTransactions(_ context.Context, txs []models.CachedTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putTransactions(txs)
	return nil
}

func (s *MemoryStore) putTransactions(txs []models.CachedTransaction) {
	for _, tx := range txs {
		byID, ok := s.txs[tx.WalletAddress]
		if !ok {
			byID = make(map[string]models.CachedTransaction)
			s.txs[tx.WalletAddress] = byID
		}
		byID[tx.ID] = tx
	}
}

func (s *MemoryStore) ListWallets(_ context.Context) ([]models.WalletMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.WalletMetadata, 0, len(s.wallets))
	for _, m := range s.wallets {
		out = append(out, m)
	}
	sortByLastFetched(out)
	return out, nil
}

func (s *MemoryStore) DeleteWalletCache(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wallets, address)
	delete(s.txs, address)
	return nil
}

func (s *MemoryStore) ClearAllCache(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets = make(map[string]models.WalletMetadata)
	s.txs = make(map[string]map[string]models.CachedTransaction)
	return nil
}

func (s *MemoryStore) Available() bool { return true }
func (s *MemoryStore) Close() error { return nil }

// sortByLastFetched orders most recently fetched first.
func sortByLastFetched(ms []models.WalletMetadata) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].LastFetchedAt != ms[j].LastFetchedAt {
			return ms[i].LastFetchedAt > ms[j].LastFetchedAt
		}
		return ms[i].Address < ms[j].Address
	})
}

// Options are shared by every backend.
type Options struct {
	MaxWallets int
	Logger     *logrus.Logger
	Metrics    *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.MaxWallets <= 0 {
		o.MaxWallets = constants.MaxCachedWallets
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
	}
	return o
}
