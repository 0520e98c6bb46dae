// Package middleware provides HTTP middleware for rdfproxy.
package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// Recovery returns a middleware that recovers from panics and answers 500.
// http.ErrAbortHandler is re-raised so the server can drop the connection.
func Recovery(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(err)
				}

				logger.Error("panic recovered",
					observability.String("path", r.URL.Path),
					observability.String("method", r.Method),
					observability.String("request_id", observability.RequestIDFromContext(r.Context())),
					observability.Any("error", err),
					observability.String("stack", string(debug.Stack())),
				)

				getMiddlewareMetrics().panicsRecovered.Inc()

				w.Header().Set(HeaderContentType, ContentTypeJSON)
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, ErrInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
