package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedMount labels requests that reached no proxy or document mount,
// keeping label cardinality bounded.
const unmatchedMount = "unmatched"

// Metrics holds the HTTP level Prometheus metrics of the server.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestSize     *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
	endpointUp      *prometheus.GaugeVec
	buildInfo       *prometheus.GaugeVec
	startTime       prometheus.Gauge
	registry        *prometheus.Registry
}

// NewMetrics creates a Metrics instance backed by its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "rdfproxy"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "mount", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "mount", "status"},
	)

	m.requestSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "mount"},
	)

	m.responseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "mount", "status"},
	)

	m.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of in-flight HTTP requests",
		},
	)

	m.endpointUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoint_up",
			Help:      "Backend endpoint reachability (1=up, 0=down)",
		},
		[]string{"proxy", "host"},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Start time of the process in unix seconds",
		},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.requestSize,
		m.responseSize,
		m.activeRequests,
		m.endpointUp,
		m.buildInfo,
		m.startTime,
	)

	m.startTime.SetToCurrentTime()

	return m
}

// RecordRequest records a completed HTTP request. mount must be a
// configured mount name, never a raw path.
func (m *Metrics) RecordRequest(method, mount string, status int, duration time.Duration, reqSize, respSize int64) {
	statusStr := strconv.Itoa(status)

	m.requestsTotal.WithLabelValues(method, mount, statusStr).Inc()
	m.requestDuration.WithLabelValues(method, mount, statusStr).Observe(duration.Seconds())
	if reqSize >= 0 {
		m.requestSize.WithLabelValues(method, mount).Observe(float64(reqSize))
	}
	m.responseSize.WithLabelValues(method, mount, statusStr).Observe(float64(respSize))
}

// SetEndpointUp records whether a proxy's backend endpoint is reachable.
func (m *Metrics) SetEndpointUp(proxy, host string, up bool) {
	value := 0.0
	if up {
		value = 1.0
	}
	m.endpointUp.WithLabelValues(proxy, host).Set(value)
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint. It serves
// this registry together with the default one, which holds the Go and
// process collectors and the package level promauto metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		prometheus.Gatherers{m.registry, prometheus.DefaultGatherer},
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegisterCollector registers an additional collector with the
// registry behind Handler.
func (m *Metrics) MustRegisterCollector(c prometheus.Collector) {
	m.registry.MustRegister(c)
}

// MetricsMiddleware returns a middleware that records request metrics.
// The mount label comes from SetMount calls made by inner handlers.
func MetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx, holder := EnsureMountHolder(r.Context())
			r = r.WithContext(ctx)

			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			metrics.activeRequests.Inc()
			next.ServeHTTP(rw, r)
			metrics.activeRequests.Dec()

			mount := holder.Get()
			if mount == "" {
				mount = unmatchedMount
			}
			metrics.RecordRequest(r.Method, mount, rw.status, time.Since(start), r.ContentLength, int64(rw.size))
		})
	}
}

// statusRecorder wraps http.ResponseWriter to capture status and size.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Flush implements http.Flusher for streaming support.
func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
