package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/constants"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// entry wraps a cached response with the time it was stored.
type entry struct {
	StoredAt int64                    `json:"storedAt"` // unix millis
	Response *models.AnalysisResponse `json:"response"`
}

// TTLs splits an entry's life into a fresh window and a stale window.
type TTLs struct {
	Fresh time.Duration
	Stale time.Duration
}

func (t TTLs) withDefaults() TTLs {
	if t.Fresh <= 0 {
		t.Fresh = constants.DefaultAnalysisCacheTTL
	}
	if t.Stale < t.Fresh {
		t.Stale = constants.DefaultAnalysisStaleTTL
	}
	if t.Stale < t.Fresh {
		t.Stale = t.Fresh
	}
	return t
}

// RedisAnalysisCache keeps analyses in Redis for the stale window.
type RedisAnalysisCache struct {
	client *redis.Client
	ttls   TTLs
	logger *logrus.Logger
	now    func() time.Time
}

func NewRedisAnalysisCache(client *redis.Client, ttls TTLs, logger *logrus.Logger) (*RedisAnalysisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisAnalysisCache{client: client, ttls: ttls.withDefaults(), logger: logger, now: time.Now}, nil
}

func analysisKey(address string) string { return constants.RedisKeyAnalysisPrefix + address }

func (c *RedisAnalysisCache) Get(ctx context.Context, address string) (*models.AnalysisResponse, bool, error) {
	val, err := c.client.Get(ctx, analysisKey(address)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get analysis: %w", err)
	}

	var e entry
	if err := json.Unmarshal([]byte(val), &e); err != nil || e.Response == nil {
		c.logger.WithField("address", models.ShortAddress(address)).Warn("dropping unreadable cached analysis")
		_ = c.client.Del(ctx, analysisKey(address)).Err()
		return nil, false, nil
	}
	fresh := c.now().UnixMilli()-e.StoredAt < c.ttls.Fresh.Milliseconds()
	return e.Response, fresh, nil
}

func (c *RedisAnalysisCache) Set(ctx context.Context, resp *models.AnalysisResponse) error {
	b, err := json.Marshal(entry{StoredAt: c.now().UnixMilli(), Response: resp})
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if err := c.client.Set(ctx, analysisKey(resp.Address), b, c.ttls.Stale).Err(); err != nil {
		return fmt.Errorf("set analysis: %w", err)
	}
	return nil
}

func (c *RedisAnalysisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisAnalysisCache) Close() error {
	return c.client.Close()
}

// MemoryAnalysisCache is the single-process fallback when Redis is not
// configured.
type MemoryAnalysisCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttls    TTLs
	now     func() time.Time
}

func NewMemoryAnalysisCache(ttls TTLs) *MemoryAnalysisCache {
	return &MemoryAnalysisCache{
		entries: make(map[string]entry),
		ttls:    ttls.withDefaults(),
		now:     time.Now,
	}
}

func (c *MemoryAnalysisCache) Get(_ context.Context, address string) (*models.AnalysisResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[address]
	if !ok {
		return nil, false, nil
	}
	age := c.now().UnixMilli() - e.StoredAt
	if age >= c.ttls.Stale.Milliseconds() {
		delete(c.entries, address)
		return nil, false, nil
	}
	resp := *e.Response
	return &resp, age < c.ttls.Fresh.Milliseconds(), nil
}

func (c *MemoryAnalysisCache) Set(_ context.Context, resp *models.AnalysisResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *resp
	c.entries[resp.Address] = entry{StoredAt: c.now().UnixMilli(), Response: &stored}
	return nil
}

func (c *MemoryAnalysisCache) Ping(context.Context) error { return nil }

func (c *MemoryAnalysisCache) Close() error { return nil }
