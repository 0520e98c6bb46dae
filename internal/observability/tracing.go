package observability

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// OTLP exporter defaults.
const (
	DefaultOTLPTimeout            = 10 * time.Second
	DefaultOTLPReconnectionPeriod = 10 * time.Second
	DefaultOTLPRetryInitial       = 1 * time.Second
	DefaultOTLPRetryMaxInterval   = 30 * time.Second
	DefaultOTLPRetryMaxElapsed    = 1 * time.Minute
)

// TracerName is the instrumentation name used when no tracer is configured.
const TracerName = "github.com/vyrodovalexey/rdfproxy"

// TracerConfig contains tracing configuration.
type TracerConfig struct {
	ServiceName  string
	OTLPEndpoint string
	SamplingRate float64
	Enabled      bool
}

// Tracer wraps OpenTelemetry tracing functionality.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracerConfig
}

// NewTracer creates a tracer. A disabled tracer delegates to the global
// (no-op by default) provider.
func NewTracer(ctx context.Context, cfg TracerConfig) (*Tracer, error) {
	if !cfg.Enabled {
		return &Tracer{config: cfg, tracer: otel.Tracer(cfg.ServiceName)}, nil
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(createSampler(cfg.SamplingRate))),
	}

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithTimeout(DefaultOTLPTimeout),
			otlptracegrpc.WithReconnectionPeriod(DefaultOTLPReconnectionPeriod),
			otlptracegrpc.WithRetry(otlptracegrpc.RetryConfig{
				Enabled:         true,
				InitialInterval: DefaultOTLPRetryInitial,
				MaxInterval:     DefaultOTLPRetryMaxInterval,
				MaxElapsedTime:  DefaultOTLPRetryMaxElapsed,
			}),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, err
	}
	opts = append(opts, sdktrace.WithResource(res))

	provider := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
		config:   cfg,
	}, nil
}

func createSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown flushes and stops the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// StartSpan starts a new span.
func (t *Tracer) StartSpan(
	ctx context.Context,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// StartSpan starts a span on the global provider. Library packages use it
// so they need no Tracer handle.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TracingMiddleware returns a middleware that starts a server span per request.
func TracingMiddleware(tracer *Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.StartSpan(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
					attribute.String("user_agent.original", r.UserAgent()),
					attribute.String("server.address", r.Host),
				),
			)
			defer span.End()

			if sc := span.SpanContext(); sc.HasTraceID() {
				ctx = ContextWithTraceID(ctx, sc.TraceID().String())
				ctx = ContextWithSpanID(ctx, sc.SpanID().String())
			}

			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", rw.status))
			if rw.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rw.status))
			}
		})
	}
}

// InjectTraceContext writes the W3C trace context of ctx into outbound headers.
func InjectTraceContext(ctx context.Context, header http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))
}
