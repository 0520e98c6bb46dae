package proxy

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rewrite directions.
const (
	directionRequest   = "request"
	directionResponse  = "response"
	directionIntercept = "intercept"
)

// Interception outcomes.
const (
	outcomeRewritten   = "rewritten"
	outcomePassthrough = "passthrough"
	outcomeError       = "error"
)

// proxyMetrics contains Prometheus metrics for proxy operations.
type proxyMetrics struct {
	errorsTotal        *prometheus.CounterVec
	fetchDuration      *prometheus.HistogramVec
	rewritesTotal      *prometheus.CounterVec
	interceptionsTotal *prometheus.CounterVec
}

var (
	proxyMetricsInstance *proxyMetrics
	proxyMetricsOnce     sync.Once
)

// initProxyMetrics initializes the singleton proxy metrics instance
// with the given Prometheus registry. If registry is nil, metrics are
// registered with the default registerer. Subsequent calls are no-ops.
func initProxyMetrics(registry *prometheus.Registry) {
	proxyMetricsOnce.Do(func() {
		var registerer prometheus.Registerer
		if registry != nil {
			registerer = registry
		} else {
			registerer = prometheus.DefaultRegisterer
		}
		factory := promauto.With(registerer)
		proxyMetricsInstance = &proxyMetrics{
			errorsTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rdfproxy",
					Subsystem: "proxy",
					Name:      "errors_total",
					Help:      "Total number of proxy errors",
				},
				[]string{"mount", "error_type"},
			),
			fetchDuration: factory.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "rdfproxy",
					Subsystem: "proxy",
					Name:      "fetch_duration_seconds",
					Help:      "Duration of backend graph requests",
					Buckets: []float64{
						.001, .005, .01, .025,
						.05, .1, .25, .5,
						1, 2.5, 5, 10,
					},
				},
				[]string{"mount"},
			),
			rewritesTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rdfproxy",
					Subsystem: "proxy",
					Name:      "graph_rewrites_total",
					Help:      "Total number of graphs rewritten between namespaces",
				},
				[]string{"direction"},
			),
			interceptionsTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rdfproxy",
					Subsystem: "proxy",
					Name:      "interceptions_total",
					Help:      "Total number of intercepted responses by outcome",
				},
				[]string{"outcome"},
			),
		}
	})
}

// initProxyVecMetrics pre-populates label combinations so the series show
// up in /metrics right after startup.
func initProxyVecMetrics() {
	m := getProxyMetrics()

	for _, d := range []string{directionRequest, directionResponse, directionIntercept} {
		m.rewritesTotal.WithLabelValues(d)
	}
	for _, o := range []string{outcomeRewritten, outcomePassthrough, outcomeError} {
		m.interceptionsTotal.WithLabelValues(o)
	}
}

// getProxyMetrics returns the singleton proxy metrics instance.
// If initProxyMetrics has not been called, metrics are lazily
// initialized with the default registerer.
func getProxyMetrics() *proxyMetrics {
	initProxyMetrics(nil)
	return proxyMetricsInstance
}
