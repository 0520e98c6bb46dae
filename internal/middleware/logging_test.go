package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

func newBufferLogger(t *testing.T) (observability.Logger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger, err := observability.NewLoggerWithWriter(observability.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	return logger, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		handler       http.HandlerFunc
		expectedLevel string
		expectedCode  float64
		expectedSize  float64
	}{
		{
			name: "success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				observability.SetMount(r.Context(), "dataset")
				_, _ = w.Write([]byte("<s> <p> <o> .\n"))
			},
			expectedLevel: "info",
			expectedCode:  http.StatusOK,
			expectedSize:  14,
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				observability.SetMount(r.Context(), "dataset")
				w.WriteHeader(http.StatusNotAcceptable)
			},
			expectedLevel: "info",
			expectedCode:  http.StatusNotAcceptable,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				observability.SetMount(r.Context(), "dataset")
				w.WriteHeader(http.StatusBadGateway)
				w.WriteHeader(http.StatusOK)
			},
			expectedLevel: "warn",
			expectedCode:  http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := newBufferLogger(t)
			handler := RequestIDWithGenerator(func() string { return "req-1" })(
				Logging(logger, nil)(tt.handler))

			req := httptest.NewRequest(http.MethodGet, "/data/s?x=1", nil)
			req.RemoteAddr = "203.0.113.9:5000"
			handler.ServeHTTP(httptest.NewRecorder(), req)

			entry := decodeLine(t, buf)
			assert.Equal(t, "http request", entry["message"])
			assert.Equal(t, tt.expectedLevel, entry["level"])
			assert.Equal(t, tt.expectedCode, entry["status"])
			assert.Equal(t, tt.expectedSize, entry["size"])
			assert.Equal(t, "dataset", entry["mount"])
			assert.Equal(t, "/data/s", entry["path"])
			assert.Equal(t, "x=1", entry["query"])
			assert.Equal(t, "203.0.113.9", entry["client_ip"])
			assert.Equal(t, "req-1", entry["request_id"])
		})
	}
}

func TestLogging_SharesMountHolderWithMetrics(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferLogger(t)
	metrics := observability.NewMetrics("logging_test")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		observability.SetMount(r.Context(), "vocab")
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Logging(logger, nil)(observability.MetricsMiddleware(metrics)(inner))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/vocab/", nil))

	assert.Equal(t, "vocab", decodeLine(t, buf)["mount"])
}

func TestResponseWriter_Unwrap(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	assert.Same(t, rec, rw.Unwrap())
	require.NoError(t, http.NewResponseController(rw).Flush())
	assert.True(t, rec.Flushed)
}
