package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/rdfproxy/internal/observability"
	"github.com/vyrodovalexey/rdfproxy/internal/rdfhttp"
	"github.com/vyrodovalexey/rdfproxy/internal/transport"
)

// Proxy maps one public mount path onto one backend endpoint.
type Proxy struct {
	name         string
	endpoint     *url.URL
	pathname     string
	fetcher      *Fetcher
	sender       *Sender
	bodyParser   *rdfhttp.BodyParser
	resolver     rdfhttp.URLResolver
	logger       observability.Logger
	errorHandler ErrorHandler
}

// New creates a proxy for the backend at endpoint.
func New(endpoint string, opts ...Option) (*Proxy, error) {
	endpointURL, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)

	if o.mediaType != "" && !o.formats.Supports(o.mediaType) {
		return nil, fmt.Errorf("media type %q: %w", o.mediaType, ErrUnsupportedMediaType)
	}

	name := o.name
	if name == "" {
		name = endpointURL.Host
	}

	client := o.client
	if client == nil {
		client = transport.NewHTTPClient(
			transport.WithFormats(o.formats),
			transport.WithLogger(o.logger),
		)
	}

	var bodyOpts []rdfhttp.BodyParserOption
	if o.maxBodyBytes > 0 {
		bodyOpts = append(bodyOpts, rdfhttp.WithMaxBodyBytes(o.maxBodyBytes))
	}

	initProxyVecMetrics()

	return &Proxy{
		name:         name,
		endpoint:     endpointURL,
		pathname:     o.pathname,
		fetcher:      NewFetcher(endpointURL, client, o.mediaType),
		sender:       NewSender(endpointURL, o.responder),
		bodyParser:   rdfhttp.NewBodyParser(o.formats, bodyOpts...),
		resolver:     o.resolver,
		logger:       o.logger.With(observability.String("mount", name)),
		errorHandler: o.errorHandler,
	}, nil
}

// parseEndpoint accepts absolute http(s) URLs without query or fragment.
// An empty path becomes "/".
func parseEndpoint(endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https: %q", ErrInvalidEndpoint, endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host: %q", ErrInvalidEndpoint, endpoint)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("%w: query and fragment are not allowed: %q", ErrInvalidEndpoint, endpoint)
	}
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u, nil
}

// Name returns the proxy name.
func (p *Proxy) Name() string {
	return p.name
}

// Endpoint returns a copy of the endpoint URL.
func (p *Proxy) Endpoint() *url.URL {
	u := *p.endpoint
	return &u
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, MountPathFromContext(r.Context()))
}

// serve runs parse, fetch and send for one request. frameworkMount is the
// mount path the host framework reports, used without WithPathname.
func (p *Proxy) serve(w http.ResponseWriter, r *http.Request, frameworkMount string) {
	ctx := observability.SetMount(r.Context(), p.name)
	ctx, span := observability.StartSpan(ctx, "proxy.Serve",
		trace.WithAttributes(
			attribute.String("rdfproxy.mount", p.name),
			attribute.String("http.request.method", r.Method),
		),
	)
	r = r.WithContext(ctx)

	err := p.handle(w, r, frameworkMount)
	observability.EndSpan(span, err)

	if err != nil {
		getProxyMetrics().errorsTotal.WithLabelValues(p.name, errorKind(err)).Inc()
		p.errorHandler(w, r, err)
	}
}

func (p *Proxy) handle(w http.ResponseWriter, r *http.Request, frameworkMount string) error {
	ctx := r.Context()

	mount := p.pathname
	if mount == "" {
		mount = frameworkMount
	}

	public := p.resolver.Resolve(r)
	proxyURL := p.fetcher.ProxyURL(public, mount)

	g, err := p.bodyParser.Parse(r)
	if err != nil {
		return &Error{Op: OpParseBody, Message: "parse request body", Cause: err}
	}

	start := time.Now()
	result, err := p.fetcher.Fetch(ctx, &FetchRequest{
		Method: r.Method,
		URL:    public,
		Header: r.Header,
		Graph:  g,
	}, proxyURL)
	getProxyMetrics().fetchDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	if ctx.Err() != nil {
		p.logger.WithContext(ctx).Debug("client went away, dropping backend response",
			observability.Int("status", result.Status),
		)
		return nil
	}

	p.logger.WithContext(ctx).Debug("backend responded",
		observability.String("path", r.URL.Path),
		observability.Int("status", result.Status),
		observability.Bool("graph", result.Graph != nil),
	)

	return p.sender.Send(ctx, w, result, proxyURL, r.Header.Get("Accept"))
}
