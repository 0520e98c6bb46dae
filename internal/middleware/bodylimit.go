package middleware

import (
	"io"
	"net/http"

	"github.com/vyrodovalexey/rdfproxy/internal/observability"
	"github.com/vyrodovalexey/rdfproxy/internal/rdfhttp"
)

// BodyLimit returns a middleware that rejects requests whose declared
// Content-Length exceeds maxSize with 413, and makes reads past maxSize
// fail with rdfhttp.ErrBodyTooLarge for bodies of unknown length.
// A non-positive maxSize disables the limit.
func BodyLimit(maxSize int64, logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxSize <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxSize {
				logger.Warn("request body too large",
					observability.Int64("content_length", r.ContentLength),
					observability.Int64("max_size", maxSize),
					observability.String("path", r.URL.Path),
				)

				getMiddlewareMetrics().bodyLimitRejected.Inc()

				w.Header().Set(HeaderContentType, ContentTypeJSON)
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = io.WriteString(w, ErrRequestEntityTooLarge)
				return
			}

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = &limitedReadCloser{ReadCloser: r.Body, remaining: maxSize}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limitedReadCloser fails reads once more than remaining bytes would be
// consumed. A body of exactly the limit reads to EOF normally.
type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
}

// Read reads up to len(p) bytes into p, respecting the remaining limit.
func (l *limitedReadCloser) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		var extra [1]byte
		n, err := l.ReadCloser.Read(extra[:])
		if n > 0 {
			getMiddlewareMetrics().bodyLimitRejected.Inc()
			return 0, rdfhttp.ErrBodyTooLarge
		}
		return 0, err
	}

	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}

	n, err := l.ReadCloser.Read(p)
	l.remaining -= int64(n)
	return n, err
}
