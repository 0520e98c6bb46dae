package middleware

import (
	"net/http"
	"time"

	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// responseWriter wraps http.ResponseWriter to capture status code and size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size.
func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Flush implements http.Flusher interface for streaming support.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Logging returns a middleware that writes one log line per request. The
// line carries the mount name set by the handler that served it. Server
// errors are logged at warn level.
func Logging(logger observability.Logger, extractor *ClientIPExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx, holder := observability.EnsureMountHolder(r.Context())
			r = r.WithContext(ctx)

			rw := &responseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			fields := []observability.Field{
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("query", r.URL.RawQuery),
				observability.String("mount", holder.Get()),
				observability.Int("status", rw.status),
				observability.Int("size", rw.size),
				observability.Duration("duration", time.Since(start)),
				observability.String("client_ip", extractor.Extract(r)),
				observability.String("user_agent", r.UserAgent()),
				//nolint:contextcheck // request context carries the ID
				observability.String("request_id", observability.RequestIDFromContext(r.Context())),
			}

			if rw.status >= http.StatusInternalServerError {
				logger.Warn("http request", fields...)
				return
			}
			logger.Info("http request", fields...)
		})
	}
}
