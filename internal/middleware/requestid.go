package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

const (
	// RequestIDHeader is the header name for request ID.
	RequestIDHeader = "X-Request-ID"

	// maxRequestIDLength bounds client supplied IDs before they reach logs.
	maxRequestIDLength = 128
)

// RequestID returns a middleware that propagates the caller's X-Request-ID
// or generates a UUID, and exposes it in the context and response header.
func RequestID() func(http.Handler) http.Handler {
	return RequestIDWithGenerator(func() string { return uuid.New().String() })
}

// RequestIDWithGenerator is RequestID with a custom ID generator.
func RequestIDWithGenerator(generator func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if !validRequestID(requestID) {
				requestID = generator()
			}

			r = r.WithContext(observability.ContextWithRequestID(r.Context(), requestID))
			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r)
		})
	}
}

// validRequestID accepts non-empty printable ASCII IDs of bounded length.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
