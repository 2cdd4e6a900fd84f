package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordUpstreamCall("helius", "success", 0.1)
		m.RecordHistoryPage(true, 100)
		m.RecordClassified("buy")
		m.RecordAnalysis("full", false, 1)
		m.RecordAnalysisCacheLookup("hit")
		m.RecordWalletEvictions(2)
		m.RecordHTTPRequest("/health", "GET", 200, 0.01)
	})
}

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordUpstreamCall("helius", "success", 0.2)
	m.RecordUpstreamCall("helius", "success", 0.3)
	m.RecordUpstreamCall("helius", "error", 0.1)
	m.RecordClassified("skipped")
	m.RecordWalletEvictions(3)
	m.RecordWalletEvictions(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.upstreamCallsTotal.WithLabelValues("helius", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamCallsTotal.WithLabelValues("helius", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactionsClassifiedTotal.WithLabelValues("skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.walletEvictionsTotal))
}
