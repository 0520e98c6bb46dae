package rdfhttp

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vyrodovalexey/rdfproxy/internal/formats"
	"github.com/vyrodovalexey/rdfproxy/internal/graph"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 10 << 20

// ErrBodyTooLarge indicates a request body above the configured limit.
var ErrBodyTooLarge = errors.New("request body too large")

// BodyParser reads request bodies into graphs using a format registry.
type BodyParser struct {
	formats  *formats.Registry
	maxBytes int64
}

// BodyParserOption configures a BodyParser.
type BodyParserOption func(*BodyParser)

// WithMaxBodyBytes limits the accepted body size. Values <= 0 keep the default.
func WithMaxBodyBytes(n int64) BodyParserOption {
	return func(p *BodyParser) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// NewBodyParser returns a parser backed by reg.
func NewBodyParser(reg *formats.Registry, opts ...BodyParserOption) *BodyParser {
	p := &BodyParser{formats: reg, maxBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse returns the graph carried by the request body, or nil when the
// request has no body. The body is read with the request's Content-Type;
// a body of an unknown type fails with formats.ErrUnsupportedMediaType.
func (p *BodyParser) Parse(r *http.Request) (*graph.Graph, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrBodyTooLarge
	}
	if len(data) == 0 {
		return nil, nil
	}

	return p.formats.Parse(r.Context(), r.Header.Get("Content-Type"), data)
}
