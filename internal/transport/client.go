// Package transport performs graph requests against backend endpoints.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/rdfproxy/internal/formats"
	"github.com/vyrodovalexey/rdfproxy/internal/graph"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// DefaultTimeout bounds a backend call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// DefaultMaxResponseBytes bounds backend response bodies.
const DefaultMaxResponseBytes int64 = 64 << 20

var (
	// ErrCircuitOpen indicates that the breaker rejected the call.
	ErrCircuitOpen = errors.New("backend circuit open")

	// ErrResponseTooLarge indicates a backend body above the configured limit.
	ErrResponseTooLarge = errors.New("backend response too large")
)

// Request is one outbound graph request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	// Graph is the optional body. It is serialized in the Content-Type
	// header's media type, or the registry's first type when unset.
	Graph *graph.Graph
}

// Response is the backend's answer. Graph is nil when the backend sent no
// body or a body in a media type the registry does not parse.
type Response struct {
	Status int
	Header http.Header
	Graph  *graph.Graph
}

// Client performs graph requests.
type Client interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPClient is the default Client on top of net/http.
type HTTPClient struct {
	client           *http.Client
	formats          *formats.Registry
	breaker          *gobreaker.CircuitBreaker
	logger           observability.Logger
	maxResponseBytes int64
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the pooled cleanhttp client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		h.client = c
	}
}

// WithTimeout sets the overall timeout of one backend call.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// WithFormats sets the registry used to encode and decode graphs.
func WithFormats(reg *formats.Registry) Option {
	return func(h *HTTPClient) {
		h.formats = reg
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(h *HTTPClient) {
		h.logger = logger
	}
}

// WithMaxResponseBytes limits backend response bodies.
func WithMaxResponseBytes(n int64) Option {
	return func(h *HTTPClient) {
		if n > 0 {
			h.maxResponseBytes = n
		}
	}
}

// WithCircuitBreaker guards calls with a breaker named name. It opens once
// at least threshold calls were seen in the current window and half of
// them failed, and stays open for timeout. Only transport failures count;
// any HTTP status is a successful call.
func WithCircuitBreaker(name string, threshold int, timeout time.Duration) Option {
	return func(h *HTTPClient) {
		h.breaker = newBreaker(name, threshold, timeout, func() observability.Logger { return h.logger })
	}
}

// NewHTTPClient returns a client using a pooled go-cleanhttp transport.
func NewHTTPClient(opts ...Option) *HTTPClient {
	c := &HTTPClient{
		client:           cleanhttp.DefaultPooledClient(),
		formats:          formats.Default(),
		logger:           observability.NopLogger(),
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	c.client.Timeout = DefaultTimeout

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Do sends req and decodes the response graph. The caller's header map is
// not modified.
func (c *HTTPClient) Do(ctx context.Context, req *Request) (resp *Response, err error) {
	ctx, span := observability.StartSpan(ctx, "transport.Do",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL),
		),
	)
	defer func() { observability.EndSpan(span, err) }()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	var httpResp *http.Response
	if c.breaker != nil {
		var out interface{}
		out, err = c.breaker.Execute(func() (interface{}, error) {
			return c.client.Do(httpReq)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}
		if out != nil {
			httpResp = out.(*http.Response)
		}
	} else {
		httpResp, err = c.client.Do(httpReq)
	}
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", httpResp.StatusCode))

	return c.readResponse(ctx, httpResp)
}

func (c *HTTPClient) newRequest(ctx context.Context, req *Request) (*http.Request, error) {
	header := req.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}

	var body io.Reader
	if req.Graph != nil {
		mediaType := header.Get("Content-Type")
		if mediaType == "" {
			mediaType = c.formats.Parsers()[0]
			header.Set("Content-Type", mediaType)
		}
		data, err := c.formats.Serialize(ctx, mediaType, req.Graph)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	if header.Get("Accept") == "" {
		header.Set("Accept", strings.Join(c.formats.Parsers(), ", "))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}

	if host := header.Get("Host"); host != "" {
		httpReq.Host = host
		header.Del("Host")
	}
	httpReq.Header = header
	observability.InjectTraceContext(ctx, httpReq.Header)

	c.logger.WithContext(ctx).Debug("sending backend request",
		observability.String("method", req.Method),
		observability.String("url", req.URL),
		observability.Bool("body", req.Graph != nil),
	)

	return httpReq, nil
}

func (c *HTTPClient) readResponse(ctx context.Context, httpResp *http.Response) (*Response, error) {
	data, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	if int64(len(data)) > c.maxResponseBytes {
		return nil, ErrResponseTooLarge
	}

	resp := &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
	}

	contentType := httpResp.Header.Get("Content-Type")
	if len(data) == 0 || !c.formats.Supports(contentType) {
		return resp, nil
	}

	g, err := c.formats.Parse(ctx, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}
	resp.Graph = g
	return resp, nil
}
