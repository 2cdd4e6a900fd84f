package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/config"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/portfolio"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/walletcache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

type fakeAnalyzerAPI struct {
	mu      sync.Mutex
	cursors []string
}

func (f *fakeAnalyzerAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	address := r.URL.Query().Get("address")

	switch r.URL.Path {
	case "/wallet-holdings":
		_ = json.NewEncoder(w).Encode(models.HoldingsResponse{Address: address, Balance: 75, Timestamp: 1})
	case "/wallet-analysis":
		cursor := r.URL.Query().Get("cachedNewestSignature")
		f.mu.Lock()
		f.cursors = append(f.cursors, cursor)
		f.mu.Unlock()

		resp := models.AnalysisResponse{WalletAnalysis: models.WalletAnalysis{Address: address}}
		if cursor == "" {
			resp.Transactions = []models.ParsedTransaction{
				{Signature: "s2", Timestamp: 2000, Type: models.TxSell, TokenAmount: 25},
				{Signature: "s1", Timestamp: 1000, Type: models.TxBuy, TokenAmount: 100, PricePerToken: 0.01},
			}
			resp.TotalBought, resp.TotalSold, resp.NetHoldings = 100, 25, 75
			resp.WeightedAverageEntryPrice = 0.01
			resp.FetchedCount = 2
		} else {
			resp.Transactions = []models.ParsedTransaction{
				{Signature: "s3", Timestamp: 3000, Type: models.TxBuy, TokenAmount: 100, PricePerToken: 0.03},
			}
			resp.TotalBought, resp.NetHoldings = 100, 100
			resp.WeightedAverageEntryPrice = 0.03
			resp.FetchedCount = 1
			resp.WasIncremental = true
		}
		resp.NewestTxSignature = resp.Transactions[0].Signature
		_ = json.NewEncoder(w).Encode(resp)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}
}

func run(t *testing.T, serverURL, cachePath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cfg := &config.Config{
		AnalyzerURL:        serverURL,
		WalletCacheBackend: "sqlite",
		WalletCachePath:    cachePath,
		MaxCachedWallets:   10,
	}
	err := newApp(cfg, &out).Run(append([]string{"walletcli"}, args...))
	return out.String(), err
}

func TestAnalyzeThenIncremental(t *testing.T) {
	api := &fakeAnalyzerAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	out, err := run(t, srv.URL, cachePath, "--json", "analyze", testWallet)
	require.NoError(t, err)
	var first portfolio.Result
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.False(t, first.WasIncremental)
	assert.Equal(t, 75.0, first.Balance)
	assert.Len(t, first.Analysis.Transactions, 2)

	out, err = run(t, srv.URL, cachePath, "--json", "analyze", testWallet)
	require.NoError(t, err)
	var second portfolio.Result
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.True(t, second.WasIncremental)
	assert.Equal(t, 2, second.FromCache)
	require.Len(t, second.Analysis.Transactions, 3)
	assert.Equal(t, "s3", second.Analysis.Transactions[0].Signature)
	assert.Equal(t, 175.0, second.Analysis.NetHoldings)
	assert.InDelta(t, 0.02, second.Analysis.WeightedAverageEntryPrice, 1e-12)

	assert.Equal(t, []string{"", "s2"}, api.cursors)
}

func TestCacheCommands(t *testing.T) {
	srv := httptest.NewServer(&fakeAnalyzerAPI{})
	defer srv.Close()
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	out, err := run(t, srv.URL, cachePath, "analyze", testWallet)
	require.NoError(t, err)
	assert.Contains(t, out, "Wallet: "+testWallet)
	assert.Contains(t, out, "Net holdings:        75.0000")

	out, err = run(t, srv.URL, cachePath, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Cached transactions: 2")

	out, err = run(t, srv.URL, cachePath, "cache", "show", testWallet)
	require.NoError(t, err)
	assert.Contains(t, out, "Newest transaction:  s2")
	assert.Contains(t, out, "Net holdings:        75.0000")

	out, err = run(t, srv.URL, cachePath, "cache", "delete", testWallet)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted cache for")

	_, err = run(t, srv.URL, cachePath, "cache", "show", testWallet)
	assert.ErrorContains(t, err, "is not cached")

	out, err = run(t, srv.URL, cachePath, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared")
}

func TestAnalyzeErrors(t *testing.T) {
	srv := httptest.NewServer(&fakeAnalyzerAPI{})
	defer srv.Close()
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	_, err := run(t, srv.URL, cachePath, "analyze")
	assert.ErrorContains(t, err, "wallet address is required")

	_, err = run(t, srv.URL, cachePath, "analyze", "not-a-wallet")
	assert.ErrorIs(t, err, models.ErrInvalidAddress)
}

func TestVersionAndVerboseFlags(t *testing.T) {
	srv := httptest.NewServer(&fakeAnalyzerAPI{})
	defer srv.Close()
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	for _, flag := range []string{"--version", "-v"} {
		out, err := run(t, srv.URL, cachePath, flag)
		require.NoError(t, err)
		assert.Contains(t, out, "walletcli version dev")
	}

	out, err := run(t, srv.URL, cachePath, "--verbose", "analyze", testWallet)
	require.NoError(t, err)
	assert.Contains(t, out, "Wallet: "+testWallet)
}

func TestOpenCacheClosesRedisClient(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	ctx := context.Background()

	// nothing listens on port 1, so the backend falls back to disabled
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	store, closeStore := openCache(ctx, walletcache.Config{
		Backend: walletcache.BackendRedis,
		Redis:   client,
		Options: walletcache.Options{Logger: logger},
	}, logger)
	assert.False(t, store.Available())

	closeStore()
	assert.ErrorIs(t, client.Ping(ctx).Err(), redis.ErrClosed)
}

func TestAnalyzeWithUnreachableRedisRunsUncached(t *testing.T) {
	api := &fakeAnalyzerAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	for i := 0; i < 2; i++ {
		out, err := run(t, srv.URL, cachePath, "--json", "--cache-backend", "redis", "--redis-addr", "127.0.0.1:1", "analyze", testWallet)
		require.NoError(t, err)
		var res portfolio.Result
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.False(t, res.WasIncremental)
	}
	assert.Equal(t, []string{"", ""}, api.cursors)
}

func TestPrintStateShowsPhaseOnly(t *testing.T) {
	var buf bytes.Buffer
	printState(&buf, portfolio.LoadingState{
		Status:   portfolio.StatusFetching,
		Message:  "Fetching new transactions...",
		Progress: &models.FetchProgress{IsIncremental: true, CurrentPage: 2, TransactionsLoaded: 200},
	})
	printState(&buf, portfolio.LoadingState{Status: portfolio.StatusComplete, Message: "Analysis complete"})
	assert.Equal(t, "  Fetching new transactions...\n", buf.String())
}
