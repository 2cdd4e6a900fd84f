package price

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJupiterSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, constants.MintSOL, r.URL.Query().Get("ids"))
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"` + constants.MintSOL + `":{"usdPrice":187.25,"decimals":9}}`))
	}))
	defer srv.Close()

	s := NewJupiterSource(srv.URL, "k", 0)
	p, err := s.SOLPriceUSD(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 187.25, p)
}

func TestJupiterSource_MissingPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewJupiterSource(srv.URL, "", 0).SOLPriceUSD(t.Context())
	assert.Error(t, err)
}

func TestCoinGeckoSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "solana", r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte(`{"solana":{"usd":150.5}}`))
	}))
	defer srv.Close()

	p, err := NewCoinGeckoSource(srv.URL, 0).SOLPriceUSD(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 150.5, p)
}

func TestSource_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewCoinGeckoSource(srv.URL, 0).SOLPriceUSD(t.Context())
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, "coingecko", httpErr.API)
}

func TestNew(t *testing.T) {
	s, err := New("", "", "", "", 0, nil)
	require.NoError(t, err)
	assert.IsType(t, &JupiterSource{}, s)

	s, err = New("CoinGecko", "", "", "", 0, nil)
	require.NoError(t, err)
	assert.IsType(t, &CoinGeckoSource{}, s)

	_, err = New("dexscreener", "", "", "", 0, nil)
	assert.Error(t, err)
}
