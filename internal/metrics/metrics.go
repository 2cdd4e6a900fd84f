package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Upstream metrics
	upstreamCallsTotal    *prometheus.CounterVec
	upstreamCallDuration  *prometheus.HistogramVec
	historyPagesTotal     *prometheus.CounterVec
	historyRecordsPerPage prometheus.Histogram

	// Analysis metrics
	transactionsClassifiedTotal *prometheus.CounterVec
	analysesTotal               *prometheus.CounterVec
	analysisDuration            *prometheus.HistogramVec

	// Cache metrics
	analysisCacheLookups *prometheus.CounterVec
	walletEvictionsTotal prometheus.Counter

	// HTTP metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		upstreamCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_calls_total",
				Help: "Total number of upstream API calls by api and status",
			},
			[]string{"api", "status"},
		),
		upstreamCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_call_duration_seconds",
				Help:    "Duration of upstream API calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"api"},
		),
		historyPagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "history_pages_fetched_total",
				Help: "Total number of transaction history pages fetched",
			},
			[]string{"mode"},
		),
		historyRecordsPerPage: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "history_records_per_page",
				Help:    "Number of records returned per history page",
				Buckets: []float64{0, 1, 10, 25, 50, 75, 100},
			},
		),
		transactionsClassifiedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_classified_total",
				Help: "Total number of raw transactions classified, by result",
			},
			[]string{"result"},
		),
		analysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_analyses_total",
				Help: "Total number of wallet analyses by outcome",
			},
			[]string{"outcome"},
		),
		analysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_analysis_duration_seconds",
				Help:    "Duration of wallet analyses in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),
		analysisCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analysis_cache_lookups_total",
				Help: "Server analysis cache lookups by result",
			},
			[]string{"result"},
		),
		walletEvictionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wallet_cache_evictions_total",
				Help: "Total number of wallets evicted from the wallet cache",
			},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
	}
}

func mode(incremental bool) string {
	if incremental {
		return "incremental"
	}
	return "full"
}

// RecordUpstreamCall records one call to an upstream API ("helius", "jupiter", "coingecko", "rpc").
func (m *Metrics) RecordUpstreamCall(api, status string, duration float64) {
	if m == nil {
		return
	}
	m.upstreamCallsTotal.WithLabelValues(api, status).Inc()
	m.upstreamCallDuration.WithLabelValues(api).Observe(duration)
}

func (m *Metrics) RecordHistoryPage(incremental bool, records int) {
	if m == nil {
		return
	}
	m.historyPagesTotal.WithLabelValues(mode(incremental)).Inc()
	m.historyRecordsPerPage.Observe(float64(records))
}

// RecordClassified records a classifier result: "buy", "sell" or "skipped".
func (m *Metrics) RecordClassified(result string) {
	if m == nil {
		return
	}
	m.transactionsClassifiedTotal.WithLabelValues(result).Inc()
}

// RecordAnalysis records a finished analysis. outcome is one of
// "full", "incremental", "cached", "stale" or "error".
func (m *Metrics) RecordAnalysis(outcome string, incremental bool, duration float64) {
	if m == nil {
		return
	}
	m.analysesTotal.WithLabelValues(outcome).Inc()
	m.analysisDuration.WithLabelValues(mode(incremental)).Observe(duration)
}

func (m *Metrics) RecordAnalysisCacheLookup(result string) {
	if m == nil {
		return
	}
	m.analysisCacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordWalletEvictions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.walletEvictionsTotal.Add(float64(n))
}

func (m *Metrics) RecordHTTPRequest(handler, method string, status int, duration float64) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, statusText(status)).Inc()
}
