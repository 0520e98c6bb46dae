package main

import (
	"net/http"

	"github.com/vyrodovalexey/rdfproxy/internal/config"
	"github.com/vyrodovalexey/rdfproxy/internal/middleware"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// middlewareChainResult holds the result of building the middleware chain.
type middlewareChainResult struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

// buildMiddlewareChain builds the middleware chain.
// The execution order (outermost executes first):
// Recovery -> RequestID -> Logging -> Metrics -> Tracing -> RateLimit ->
// BodyLimit -> [router]
//
// Logging and Metrics share one mount holder, so both see the mount name
// set by the handler that served the request.
func buildMiddlewareChain(
	handler http.Handler,
	cfg *config.Config,
	logger observability.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
) middlewareChainResult {
	extractor := middleware.NewClientIPExtractor(cfg.Server.TrustedProxies)

	h := middleware.BodyLimit(cfg.Server.MaxRequestBodySize, logger)(handler)

	rateLimitMiddleware, rateLimiter := middleware.RateLimitFromConfig(&cfg.RateLimit, extractor, logger)
	h = rateLimitMiddleware(h)

	h = observability.TracingMiddleware(tracer)(h)
	h = observability.MetricsMiddleware(metrics)(h)
	h = middleware.Logging(logger, extractor)(h)
	h = middleware.RequestID()(h)
	h = middleware.Recovery(logger)(h)

	return middlewareChainResult{
		handler:     h,
		rateLimiter: rateLimiter,
	}
}
