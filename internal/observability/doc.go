// Package observability provides logging, metrics, and tracing
// for the RDF proxy.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("graph forwarded",
//	    observability.String("mount", "/data/"),
//	    observability.Int("triples", 42),
//	)
//
// Request, trace and mount identifiers stored in a context are added to
// every entry by WithContext.
//
// # Metrics
//
// HTTP request metrics are kept in a dedicated Prometheus registry:
//
//	metrics := observability.NewMetrics("rdfproxy")
//	handler := metrics.Handler()
//
// # Tracing
//
// OpenTelemetry tracing with an OTLP gRPC exporter. Trace context is
// propagated to backends in W3C traceparent headers.
package observability
