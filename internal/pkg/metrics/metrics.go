// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nadfolio"

var (
	// UpstreamRequests counts HTTP calls to third-party APIs by host and outcome.
	UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "HTTP requests sent to upstream APIs.",
	}, []string{"host", "outcome"})

	// PriceResolutions counts resolved quotes by the tier that answered.
	PriceResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_resolutions_total",
		Help:      "Token prices resolved, labelled by pricing tier.",
	}, []string{"source"})

	// CacheLookups counts response cache hits and misses per namespace.
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Response cache lookups.",
	}, []string{"namespace", "result"})

	// RPCCalls counts chain RPC calls by method and outcome.
	RPCCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_calls_total",
		Help:      "Chain RPC calls.",
	}, []string{"method", "outcome"})

	// PortfolioBuildDuration observes how long a full snapshot takes.
	PortfolioBuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "portfolio_build_duration_seconds",
		Help:      "Time spent building a portfolio snapshot.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	})

	registerOnce sync.Once
)

// MustRegisterMetrics registers every collector with the default registry.
// Calling it more than once is a no-op.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(UpstreamRequests, PriceResolutions, CacheLookups, RPCCalls, PortfolioBuildDuration)
	})
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
