package helius

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "63LfDmNb3MQ8mw9MtZ2To9bEA2M71kZUUGq5tiJxcqj9"

// fakeHistory serves a newest-first history of n records, honoring limit and before.
type fakeHistory struct {
	records  []models.RawTransaction
	requests atomic.Int32
	failOn   int32 // 1-based request number that returns 500, 0 = never
}

func newFakeHistory(n int) *fakeHistory {
	records := make([]models.RawTransaction, n)
	for i := range records {
		records[i] = models.RawTransaction{
			Signature: fmt.Sprintf("sig-%04d", i),
			Timestamp: int64(1_700_000_000 - i),
		}
	}
	return &fakeHistory{records: records}
}

func (f *fakeHistory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := f.requests.Add(1)
	if f.failOn != 0 && n == f.failOn {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
		return
	}
	if !strings.HasSuffix(r.URL.Path, "/v0/addresses/"+testWallet+"/transactions") {
		http.NotFound(w, r)
		return
	}
	if r.URL.Query().Get("api-key") != "test-key" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	start := 0
	if before := r.URL.Query().Get("before"); before != "" {
		for i, rec := range f.records {
			if rec.Signature == before {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(f.records) {
		end = len(f.records)
	}
	page := f.records[start:end]
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(page)
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "test-key", Logger: logger})
}

func TestFetchHistory_FullHistory(t *testing.T) {
	fake := newFakeHistory(250)
	c := newTestClient(t, fake)

	var progress []models.FetchProgress
	res, err := c.FetchHistory(t.Context(), testWallet, FetchOptions{
		Progress: ProgressFunc(func(p models.FetchProgress) { progress = append(progress, p) }),
	})
	require.NoError(t, err)

	assert.Len(t, res.Transactions, 250)
	assert.Equal(t, 250, res.TotalFetched)
	assert.False(t, res.StoppedEarly)
	assert.Equal(t, "sig-0000", res.Transactions[0].Signature)
	assert.Equal(t, "sig-0249", res.Transactions[249].Signature)
	// 100 + 100 + 50, short page ends paging
	assert.Equal(t, int32(3), fake.requests.Load())

	require.Len(t, progress, 3)
	assert.Equal(t, models.FetchProgress{CurrentPage: 3, TransactionsLoaded: 250, IsIncremental: false}, progress[2])
}

func TestFetchHistory_EarlyStop(t *testing.T) {
	for _, k := range []int{0, 57, 100, 199, 249} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			fake := newFakeHistory(250)
			c := newTestClient(t, fake)

			res, err := c.FetchHistory(t.Context(), testWallet, FetchOptions{
				UntilSignature: fmt.Sprintf("sig-%04d", k),
			})
			require.NoError(t, err)

			assert.True(t, res.StoppedEarly)
			require.Len(t, res.Transactions, k)
			for i, tx := range res.Transactions {
				assert.Equal(t, fmt.Sprintf("sig-%04d", i), tx.Signature)
			}
			assert.LessOrEqual(t, fake.requests.Load(), int32(3), "page 4 must never be requested")
			assert.Equal(t, int32(k/100+1), fake.requests.Load())
		})
	}
}

func TestFetchHistory_UntilSignatureNotFound(t *testing.T) {
	fake := newFakeHistory(150)
	c := newTestClient(t, fake)

	var last models.FetchProgress
	res, err := c.FetchHistory(t.Context(), testWallet, FetchOptions{
		UntilSignature: "pruned-signature",
		Progress:       ProgressFunc(func(p models.FetchProgress) { last = p }),
	})
	require.NoError(t, err)
	assert.False(t, res.StoppedEarly)
	assert.Len(t, res.Transactions, 150)
	assert.True(t, last.IsIncremental)
}

func TestFetchHistory_MaxPagesCap(t *testing.T) {
	fake := newFakeHistory(6000)
	c := newTestClient(t, fake)

	res, err := c.FetchHistory(t.Context(), testWallet, FetchOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Transactions, 5000)
	assert.Equal(t, int32(50), fake.requests.Load())
}

func TestFetchHistory_EmptyHistory(t *testing.T) {
	fake := newFakeHistory(0)
	c := newTestClient(t, fake)

	res, err := c.FetchHistory(t.Context(), testWallet, FetchOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
	assert.Equal(t, 0, res.TotalFetched)
}

func TestFetchHistory_UpstreamFailureAborts(t *testing.T) {
	fake := newFakeHistory(250)
	fake.failOn = 2
	c := newTestClient(t, fake)

	res, err := c.FetchHistory(t.Context(), testWallet, FetchOptions{})
	require.Error(t, err)
	assert.Nil(t, res)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Contains(t, err.Error(), "page 2")
}

func TestFetchHistory_MissingAPIKey(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := c.FetchHistory(t.Context(), testWallet, FetchOptions{})
	assert.Error(t, err)
}
