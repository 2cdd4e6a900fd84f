package walletcache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/constants"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/metrics"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore keeps wallet metadata as JSON strings indexed by a set, and each
// wallet's transactions in one hash keyed by signature.
type RedisStore struct {
	client     redis.Cmdable
	maxWallets int
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

func NewRedisStore(client redis.Cmdable, opts Options) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is nil", ErrUnavailable)
	}
	opts = opts.withDefaults()
	return &RedisStore{
		client:     client,
		maxWallets: opts.MaxWallets,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}, nil
}

func walletKey(address string) string { return constants.RedisKeyWalletPrefix + address }
func txsKey(address string) string { return constants.RedisKeyWalletTxsPrefix + address }

func (s *RedisStore) GetWalletMetadata(ctx context.Context, address string) (*models.WalletMetadata, error) {
	val, err := s.client.Get(ctx, walletKey(address)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet metadata: %w", err)
	}

	var m models.WalletMetadata
	if err := json.Unmarshal([]byte(val), &m); err != nil {
		return nil, fmt.Errorf("unmarshal wallet metadata: %w", err)
	}
	return &m, nil
}

func (s *RedisStore) SaveWalletMetadata(ctx context.Context, meta models.WalletMetadata) error {
	return s.save(ctx, meta, nil)
}

// SaveWallet queues evictions, the transaction hash writes and the metadata in
// one MULTI/EXEC block.
func (s *RedisStore) SaveWallet(ctx context.Context, meta models.WalletMetadata, txs []models.CachedTransaction) error {
	return s.save(ctx, meta, txs)
}

func (s *RedisStore) save(ctx context.Context, meta models.WalletMetadata, txs []models.CachedTransaction) error {
	cached, err := s.ListWallets(ctx)
	if err != nil {
		return err
	}
	victims := evictionVictims(cached, meta.Address, s.maxWallets)

	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal wallet metadata: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, addr := range victims {
		pipe.Del(ctx, walletKey(addr), txsKey(addr))
		pipe.SRem(ctx, constants.RedisKeyWalletIndex, addr)
	}
	if err := queueTransactions(ctx, pipe, txs); err != nil {
		return err
	}
	pipe.Set(ctx, walletKey(meta.Address), b, 0)
	pipe.SAdd(ctx, constants.RedisKeyWalletIndex, meta.Address)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save wallet metadata: %w", err)
	}

	if len(victims) > 0 {
		s.metrics.RecordWalletEvictions(len(victims))
		s.logger.WithField("evicted", victims).Info("evicted wallets from cache")
	}
	return nil
}

func (s *RedisStore) GetWalletTransactions(ctx context.Context, address string) ([]models.CachedTransaction, error) {
	vals, err := s.client.HVals(ctx, txsKey(address)).Result()
	if err != nil {
		return nil, fmt.Errorf("get wallet transactions: %w", err)
	}

	out := make([]models.CachedTransaction, 0, len(vals))
	for _, v := range vals {
		var tx models.CachedTransaction
		if err := json.Unmarshal([]byte(v), &tx); err != nil {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *RedisStore) SaveTransactions(ctx context.Context, txs []models.CachedTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	if err := queueTransactions(ctx, pipe, txs); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save transactions: %w", err)
	}
	return nil
}

func queueTransactions(ctx context.Context, pipe redis.Pipeliner, txs []models.CachedTransaction) error {
	for _, tx := range txs {
		b, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("marshal transaction: %w", err)
		}
		pipe.HSet(ctx, txsKey(tx.WalletAddress), tx.ID, b)
	}
	return nil
}

func (s *RedisStore) ListWallets(ctx context.Context) ([]models.WalletMetadata, error) {
	addrs, err := s.client.SMembers(ctx, constants.RedisKeyWalletIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list wallet index: %w", err)
	}
	if len(addrs) == 0 {
		return []models.WalletMetadata{}, nil
	}

	keys := make([]string, 0, len(addrs))
	for _, a := range addrs {
		keys = append(keys, walletKey(a))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget wallets: %w", err)
	}

	out := make([]models.WalletMetadata, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var m models.WalletMetadata
		if err := json.Unmarshal([]byte(str), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	sortByLastFetched(out)
	return out, nil
}

func (s *RedisStore) DeleteWalletCache(ctx context.Context, address string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, walletKey(address), txsKey(address))
	pipe.SRem(ctx, constants.RedisKeyWalletIndex, address)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete wallet cache: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearAllCache(ctx context.Context) error {
	addrs, err := s.client.SMembers(ctx, constants.RedisKeyWalletIndex).Result()
	if err != nil {
		return fmt.Errorf("list wallet index: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, a := range addrs {
		pipe.Del(ctx, walletKey(a), txsKey(a))
	}
	pipe.Del(ctx, constants.RedisKeyWalletIndex)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("clear wallet cache: %w", err)
	}
	return nil
}

func (s *RedisStore) Available() bool { return true }

// Close is a no-op; the client is owned by the caller.
func (s *RedisStore) Close() error { return nil }
