package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/rdfproxy/internal/formats"
	"github.com/vyrodovalexey/rdfproxy/internal/graph"
	"github.com/vyrodovalexey/rdfproxy/internal/transport"
)

const ntriple = "<http://example.org/subject> <http://example.org/predicate> <http://example.org/object> .\n"

func named(s, p, o string) graph.Triple {
	return graph.NewTriple(graph.NamedNode(s), graph.NamedNode(p), graph.NamedNode(o))
}

func simpleGraph() *graph.Graph {
	return graph.New(named(
		"http://example.org/subject",
		"http://example.org/predicate",
		"http://example.org/object",
	))
}

type recordingClient struct {
	mu   sync.Mutex
	reqs []*transport.Request
	resp *transport.Response
	err  error
}

func (c *recordingClient) Do(_ context.Context, req *transport.Request) (*transport.Response, error) {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}
	if c.resp == nil {
		return &transport.Response{Status: http.StatusOK, Header: http.Header{}}, nil
	}
	return c.resp, nil
}

func (c *recordingClient) last(t *testing.T) *transport.Request {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.reqs)
	return c.reqs[len(c.reqs)-1]
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestFetcher_ProxyURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		mount    string
		expected string
	}{
		{name: "slash endpoint", endpoint: "http://example.com:8080/", mount: "/proxy/", expected: "http://example.org/proxy/"},
		{name: "slash added", endpoint: "http://example.com:8080/", mount: "/proxy", expected: "http://example.org/proxy/"},
		{name: "empty mount", endpoint: "http://example.com:8080/", mount: "", expected: "http://example.org/"},
		{name: "slash trimmed", endpoint: "http://example.com:8080/sparql", mount: "/proxy/", expected: "http://example.org/proxy"},
		{name: "root mount without slash endpoint", endpoint: "http://example.com:8080/sparql", mount: "/", expected: "http://example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewFetcher(mustURL(t, tt.endpoint), &recordingClient{}, "")
			got := f.ProxyURL(mustURL(t, "http://example.org/proxy/a?x=1"), tt.mount)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestFetcher_TargetURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		public   string
		mount    string
		expected string
		mismatch bool
	}{
		{
			name:     "patched url",
			endpoint: "http://example.com:8080/",
			public:   "http://example.org/proxy/patched-url",
			mount:    "/proxy/",
			expected: "http://example.com:8080/patched-url",
		},
		{
			name:     "query kept",
			endpoint: "http://example.com:8080/",
			public:   "http://example.org/proxy/a?b=c",
			mount:    "/proxy/",
			expected: "http://example.com:8080/a?b=c",
		},
		{
			name:     "endpoint path and scheme",
			endpoint: "https://backend.test/data/",
			public:   "http://example.org/proxy/a/b",
			mount:    "/proxy/",
			expected: "https://backend.test/data/a/b",
		},
		{
			name:     "mount root",
			endpoint: "http://example.com:8080/",
			public:   "http://example.org/proxy",
			mount:    "/proxy/",
			expected: "http://example.com:8080/",
		},
		{
			name:     "endpoint without trailing slash",
			endpoint: "http://example.com:8080/sparql",
			public:   "http://example.org/proxy/x",
			mount:    "/proxy",
			expected: "http://example.com:8080/sparql/x",
		},
		{
			name:     "escaped path kept",
			endpoint: "http://example.com:8080/",
			public:   "http://example.org/proxy/a%2Fb",
			mount:    "/proxy/",
			expected: "http://example.com:8080/a%2Fb",
		},
		{
			name:     "outside mount",
			endpoint: "http://example.com:8080/",
			public:   "http://example.org/other/a",
			mount:    "/proxy/",
			mismatch: true,
		},
		{
			name:     "sibling of mount",
			endpoint: "http://example.com:8080/sparql",
			public:   "http://example.org/proxyfoo",
			mount:    "/proxy",
			mismatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewFetcher(mustURL(t, tt.endpoint), &recordingClient{}, "")
			public := mustURL(t, tt.public)
			got, err := f.TargetURL(public, f.ProxyURL(public, tt.mount))
			if tt.mismatch {
				assert.ErrorIs(t, err, ErrMountPathMismatch)
				assert.Equal(t, http.StatusNotFound, StatusCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestFetcher_Fetch_HeadersNotMutated(t *testing.T) {
	t.Parallel()

	client := &recordingClient{}
	f := NewFetcher(mustURL(t, "http://example.com:8080/"), client, "")

	header := http.Header{}
	header.Set("Host", "example.org")
	header.Set("Accept", "text/turtle")
	header.Set("Connection", "keep-alive, X-Private")
	header.Set("X-Private", "secret")
	header.Set("Content-Length", "12")
	header.Set("Accept-Encoding", "gzip")
	header.Set("X-Custom", "kept")

	public := mustURL(t, "http://example.org/proxy/patched-url")
	_, err := f.Fetch(context.Background(), &FetchRequest{
		Method: http.MethodGet,
		URL:    public,
		Header: header,
	}, f.ProxyURL(public, "/proxy/"))
	require.NoError(t, err)

	req := client.last(t)
	assert.Equal(t, "http://example.com:8080/patched-url", req.URL)
	assert.Equal(t, "example.com:8080", req.Header.Get("Host"))
	assert.Equal(t, "text/turtle", req.Header.Get("Accept"))
	assert.Equal(t, "kept", req.Header.Get("X-Custom"))
	for _, name := range []string{"Connection", "X-Private", "Content-Length", "Accept-Encoding"} {
		assert.Empty(t, req.Header.Get(name), name)
	}
	assert.Nil(t, req.Graph)

	assert.Equal(t, "example.org", header.Get("Host"))
	assert.Equal(t, "secret", header.Get("X-Private"))
	assert.Equal(t, "gzip", header.Get("Accept-Encoding"))
}

func TestFetcher_Fetch_ForcedMediaTypeWithoutBody(t *testing.T) {
	t.Parallel()

	client := &recordingClient{}
	f := NewFetcher(mustURL(t, "http://example.com:8080/"), client, formats.MediaTypeNTriples)

	public := mustURL(t, "http://example.org/proxy/patched-url")
	_, err := f.Fetch(context.Background(), &FetchRequest{
		Method: http.MethodGet,
		URL:    public,
		Header: http.Header{"Accept": []string{"text/html"}},
	}, f.ProxyURL(public, "/proxy/"))
	require.NoError(t, err)

	req := client.last(t)
	assert.Equal(t, formats.MediaTypeNTriples, req.Header.Get("Accept"))
	assert.Empty(t, req.Header.Get("Content-Type"))
}

func TestFetcher_Fetch_ForcedMediaTypeWithBody(t *testing.T) {
	t.Parallel()

	type received struct {
		contentType string
		body        string
	}
	ch := make(chan received, 1)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		ch <- received{contentType: r.Header.Get("Content-Type"), body: string(data)}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(backend.Close)

	f := NewFetcher(mustURL(t, backend.URL+"/"), transport.NewHTTPClient(), formats.MediaTypeNTriples)

	public := mustURL(t, "http://proxy.test/proxy/resource")
	header := http.Header{"Content-Type": []string{formats.MediaTypeTurtle}}
	input := simpleGraph()

	result, err := f.Fetch(context.Background(), &FetchRequest{
		Method: http.MethodPost,
		URL:    public,
		Header: header,
		Graph:  input,
	}, f.ProxyURL(public, "/proxy/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, result.Status)
	assert.Nil(t, result.Graph)

	got := <-ch
	assert.Equal(t, formats.MediaTypeNTriples, got.contentType)
	assert.Equal(t, ntriple, got.body)
	assert.Equal(t, formats.MediaTypeTurtle, header.Get("Content-Type"))
}

func TestFetcher_Fetch_RewritesRequestGraph(t *testing.T) {
	t.Parallel()

	client := &recordingClient{}
	f := NewFetcher(mustURL(t, "http://example.com:8080/"), client, "")

	input := graph.New(
		named("http://example.org/proxy/s", "http://example.org/proxy/p", "http://other.test/o"),
		graph.NewTriple(graph.NamedNode("http://example.org/proxy/s"), graph.NamedNode("http://example.org/proxy/label"),
			graph.Literal("http://example.org/proxy/literal")),
	)
	original := input.Clone()

	public := mustURL(t, "http://example.org/proxy/s")
	_, err := f.Fetch(context.Background(), &FetchRequest{
		Method: http.MethodPut,
		URL:    public,
		Graph:  input,
	}, f.ProxyURL(public, "/proxy/"))
	require.NoError(t, err)

	expected := graph.New(
		named("http://example.com:8080/s", "http://example.com:8080/p", "http://other.test/o"),
		graph.NewTriple(graph.NamedNode("http://example.com:8080/s"), graph.NamedNode("http://example.com:8080/label"),
			graph.Literal("http://example.org/proxy/literal")),
	)
	assert.True(t, expected.Equal(client.last(t).Graph))
	assert.True(t, original.Equal(input))
}

func TestFetcher_Fetch_ReturnsResultUntouched(t *testing.T) {
	t.Parallel()

	backendGraph := graph.New(named("http://example.com:8080/s", "http://example.com:8080/p", "http://example.com:8080/o"))
	client := &recordingClient{resp: &transport.Response{
		Status: http.StatusAccepted,
		Header: http.Header{"X-Backend": []string{"1"}},
		Graph:  backendGraph,
	}}
	f := NewFetcher(mustURL(t, "http://example.com:8080/"), client, "")

	public := mustURL(t, "http://example.org/proxy/s")
	result, err := f.Fetch(context.Background(), &FetchRequest{Method: http.MethodGet, URL: public}, f.ProxyURL(public, "/proxy/"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, result.Status)
	assert.Equal(t, "1", result.Header.Get("X-Backend"))
	assert.Same(t, backendGraph, result.Graph)
}

func TestFetcher_Fetch_TransportError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	f := NewFetcher(mustURL(t, "http://example.com:8080/"), &recordingClient{err: cause}, "")

	public := mustURL(t, "http://example.org/proxy/s")
	_, err := f.Fetch(context.Background(), &FetchRequest{Method: http.MethodGet, URL: public}, f.ProxyURL(public, "/proxy/"))
	require.Error(t, err)

	assert.True(t, IsTransportError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, OpFetch, perr.Op)
	assert.Equal(t, "http://example.com:8080/s", perr.Target)
}

func TestFetcher_Fetch_MountMismatchSendsNothing(t *testing.T) {
	t.Parallel()

	client := &recordingClient{}
	f := NewFetcher(mustURL(t, "http://example.com:8080/"), client, "")

	_, err := f.Fetch(context.Background(), &FetchRequest{
		Method: http.MethodGet,
		URL:    mustURL(t, "http://example.org/elsewhere"),
	}, mustURL(t, "http://example.org/proxy/"))
	assert.ErrorIs(t, err, ErrMountPathMismatch)
	assert.Empty(t, client.reqs)
}
