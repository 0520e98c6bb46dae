// Package middleware provides the net/http middleware wrapped around the
// rdfproxy router.
//
// # Middleware Components
//
//   - Recovery: panic recovery with stack trace logging
//   - Request ID: X-Request-ID propagation and generation
//   - Logging: one structured line per request
//   - Rate Limiting: global or per-client token buckets
//   - Body Limit: early rejection of oversized request bodies
//   - Client IP: trusted proxy aware client address extraction
//
// # Usage
//
// Middleware functions follow the standard Go pattern:
//
//	handler := middleware.Recovery(logger)(
//	    middleware.RequestID()(
//	        middleware.Logging(logger, extractor)(router),
//	    ),
//	)
package middleware
