package cache

import (
	"context"
	"testing"
	"time"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/constants"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

func sampleResponse() *models.AnalysisResponse {
	return &models.AnalysisResponse{
		WalletAnalysis: models.WalletAnalysis{
			Address:     testWallet,
			TotalBought: 10,
			NetHoldings: 10,
			Transactions: []models.ParsedTransaction{
				{Signature: "s1", Timestamp: 1000, Type: models.TxBuy, TokenAmount: 10},
			},
			AnalyzedAt: 1000,
		},
		NewestTxSignature: "s1",
		FetchedCount:      1,
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestMemoryAnalysisCache_FreshThenStaleThenGone(t *testing.T) {
	clk := &clock{t: time.UnixMilli(1_000_000)}
	c := NewMemoryAnalysisCache(TTLs{Fresh: time.Minute, Stale: time.Hour})
	c.now = clk.now
	ctx := context.Background()

	got, fresh, err := c.Get(ctx, testWallet)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, fresh)

	require.NoError(t, c.Set(ctx, sampleResponse()))

	got, fresh, err = c.Get(ctx, testWallet)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, fresh)

	clk.t = clk.t.Add(2 * time.Minute)
	got, fresh, err = c.Get(ctx, testWallet)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, fresh)

	clk.t = clk.t.Add(time.Hour)
	got, _, err = c.Get(ctx, testWallet)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTTLsDefaults(t *testing.T) {
	got := TTLs{}.withDefaults()
	assert.Equal(t, constants.DefaultAnalysisCacheTTL, got.Fresh)
	assert.Equal(t, constants.DefaultAnalysisStaleTTL, got.Stale)

	got = TTLs{Fresh: 48 * time.Hour}.withDefaults()
	assert.Equal(t, 48*time.Hour, got.Stale)
}

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())
	return client
}

func TestRedisAnalysisCache(t *testing.T) {
	client := setupTestRedis(t)
	defer func() {
		_ = client.FlushDB(context.Background()).Err()
	}()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	c, err := NewRedisAnalysisCache(client, TTLs{Fresh: time.Minute, Stale: time.Hour}, logger)
	require.NoError(t, err)
	defer c.Close()

	clk := &clock{t: time.Now()}
	c.now = clk.now
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, sampleResponse()))

	got, fresh, err := c.Get(ctx, testWallet)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, fresh)
	assert.Equal(t, "s1", got.NewestTxSignature)

	ttl, err := client.TTL(ctx, analysisKey(testWallet)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	clk.t = clk.t.Add(5 * time.Minute)
	_, fresh, err = c.Get(ctx, testWallet)
	require.NoError(t, err)
	assert.False(t, fresh)

	require.NoError(t, client.Set(ctx, analysisKey(testWallet), "not json", 0).Err())
	got, _, err = c.Get(ctx, testWallet)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPubSubRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	p := NewPubSubManager(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan *models.AnalysisEvent, 1)
	subscribed := make(chan error, 1)
	go func() {
		subscribed <- p.Subscribe(ctx, constants.PubSubChannelAnalysisPrefix+testWallet, func(e *models.AnalysisEvent) {
			got <- e
		})
	}()

	event := sampleResponse().Event()
	require.Eventually(t, func() bool {
		if err := p.PublishAnalysis(ctx, event); err != nil {
			return false
		}
		select {
		case e := <-got:
			assert.Equal(t, testWallet, e.Address)
			assert.Equal(t, 1, e.TransactionCount)
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 4*time.Second, 200*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-subscribed, context.Canceled)
}
