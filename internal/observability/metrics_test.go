package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	m := NewMetrics("")
	require.NotNil(t, m.Registry())

	m.RecordRequest(http.MethodGet, "data", http.StatusOK, 10*time.Millisecond, 0, 120)
	m.SetEndpointUp("data", "backend:8080", true)
	m.SetBuildInfo("1.0.0", "abc", "now")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "data", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.endpointUp.WithLabelValues("data", "backend:8080")))

	m.SetEndpointUp("data", "backend:8080", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.endpointUp.WithLabelValues("data", "backend:8080")))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics("rdfproxy_test")
	m.RecordRequest(http.MethodPost, "data", http.StatusCreated, time.Millisecond, 10, 10)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rdfproxy_test_requests_total")
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()

	m := NewMetrics("mw")

	handler := MetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/data/") {
			SetMount(r.Context(), "data")
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/data/a", "/other"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusAccepted, rec.Code)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "data", "202")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", unmatchedMount, "202")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeRequests))
}

func TestStatusRecorder(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	n, err := rw.Write([]byte("abc"))
	require.NoError(t, err)
	rw.Flush()

	assert.Equal(t, 3, n)
	assert.Equal(t, http.StatusNotFound, rw.status)
	assert.Equal(t, 3, rw.size)
	assert.True(t, rec.Flushed)
	assert.Same(t, rec, rw.Unwrap())
}

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(context.Background(), TracerConfig{ServiceName: "test", Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tracer.provider)
	assert.NoError(t, tracer.Shutdown(context.Background()))

	_, span := tracer.StartSpan(context.Background(), "noop")
	span.End()
}

func TestCreateSampler(t *testing.T) {
	t.Parallel()

	assert.Contains(t, createSampler(1).Description(), "AlwaysOn")
	assert.Contains(t, createSampler(0).Description(), "AlwaysOff")
	assert.Contains(t, createSampler(0.5).Description(), "TraceIDRatioBased")
}

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(context.Background(), TracerConfig{ServiceName: "test"})
	require.NoError(t, err)

	var called bool
	handler := TracingMiddleware(tracer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusBadGateway)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data/x", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestInjectTraceContext(t *testing.T) {
	t.Parallel()

	traceID, _ := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	spanID, _ := trace.SpanIDFromHex("0123456789abcdef")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	header := http.Header{}
	propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(header))
	assert.Equal(t, "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01", header.Get("traceparent"))

	// The global propagator is a no-op until a tracer is enabled.
	empty := http.Header{}
	InjectTraceContext(context.Background(), empty)
	assert.Empty(t, empty.Get("traceparent"))
}
