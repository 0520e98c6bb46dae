package proxy

import (
	"github.com/vyrodovalexey/rdfproxy/internal/formats"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
	"github.com/vyrodovalexey/rdfproxy/internal/rdfhttp"
	"github.com/vyrodovalexey/rdfproxy/internal/transport"
)

// options holds the settings shared by New and Forward. Settings that only
// make sense for one of them are ignored by the other.
type options struct {
	name         string
	pathname     string
	mediaType    string
	formats      *formats.Registry
	client       transport.Client
	responder    GraphResponder
	logger       observability.Logger
	errorHandler ErrorHandler
	resolver     rdfhttp.URLResolver
	maxBodyBytes int64
}

// Option configures a Proxy or a Forward middleware.
type Option func(*options)

// WithName sets the name used in logs and metric labels.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithPathname sets the public mount path. Without it the mount path
// recorded by Mount or the gin route is used.
func WithPathname(pathname string) Option {
	return func(o *options) {
		o.pathname = pathname
	}
}

// WithMediaType forces the media type used to talk to the backend.
func WithMediaType(mediaType string) Option {
	return func(o *options) {
		o.mediaType = mediaType
	}
}

// WithFormats sets the format registry.
func WithFormats(reg *formats.Registry) Option {
	return func(o *options) {
		o.formats = reg
	}
}

// WithClient sets the backend client.
func WithClient(client transport.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithResponder sets the collaborator that writes response graphs.
func WithResponder(responder GraphResponder) Option {
	return func(o *options) {
		o.responder = responder
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithErrorHandler sets the error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(o *options) {
		o.errorHandler = handler
	}
}

// WithTrustForwardedHeaders makes public URL resolution honor
// X-Forwarded-Proto and X-Forwarded-Host.
func WithTrustForwardedHeaders(trust bool) Option {
	return func(o *options) {
		o.resolver.TrustForwardedHeaders = trust
	}
}

// WithMaxBodyBytes limits request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		o.maxBodyBytes = n
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.formats == nil {
		o.formats = formats.Default()
	}
	if o.responder == nil {
		o.responder = rdfhttp.NewResponder(o.formats)
	}
	if o.errorHandler == nil {
		o.errorHandler = DefaultErrorHandler(o.logger)
	}

	return o
}
