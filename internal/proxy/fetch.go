package proxy

import (
	"context"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/vyrodovalexey/rdfproxy/internal/graph"
	"github.com/vyrodovalexey/rdfproxy/internal/rewrite"
	"github.com/vyrodovalexey/rdfproxy/internal/transport"
)

// hopHeaders are headers that should not be forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// FetchRequest is the incoming request as seen by the Fetcher.
type FetchRequest struct {
	Method string
	// URL is the absolute public URL of the request.
	URL    *url.URL
	Header http.Header
	// Graph is the parsed request body, nil when there was none.
	Graph *graph.Graph
}

// FetchResult is the backend's answer, exactly as the client returned it.
type FetchResult struct {
	Status int
	Header http.Header
	Graph  *graph.Graph
}

// Fetcher builds and sends the backend request for a proxied request.
type Fetcher struct {
	endpoint  *url.URL
	mediaType string
	client    transport.Client
}

// NewFetcher returns a fetcher for endpoint. A non-empty mediaType is
// forced on the backend conversation.
func NewFetcher(endpoint *url.URL, client transport.Client, mediaType string) *Fetcher {
	return &Fetcher{
		endpoint:  endpoint,
		mediaType: mediaType,
		client:    client,
	}
}

// ProxyURL returns the public namespace of the proxy: the origin of public
// joined with mount. The mount path's trailing slash is made to agree with
// the endpoint's so the two namespaces map onto each other.
func (f *Fetcher) ProxyURL(public *url.URL, mount string) *url.URL {
	if mount == "" {
		mount = "/"
	}
	if strings.HasSuffix(f.endpoint.Path, "/") {
		if !strings.HasSuffix(mount, "/") {
			mount += "/"
		}
	} else {
		mount = strings.TrimRight(mount, "/")
	}

	return &url.URL{
		Scheme: public.Scheme,
		User:   public.User,
		Host:   public.Host,
		Path:   mount,
	}
}

// TargetURL maps the public request URL into the endpoint: the host and
// scheme become the endpoint's and the mount prefix of the path is replaced
// by the endpoint path. The query is kept.
func (f *Fetcher) TargetURL(public, proxyURL *url.URL) (*url.URL, error) {
	mount := proxyURL.Path

	rest, ok := strings.CutPrefix(public.Path, mount)
	if !ok {
		if public.Path+"/" != mount {
			return nil, newMountMismatchError(public.Path, mount)
		}
		rest = ""
	}
	if !strings.HasSuffix(mount, "/") && rest != "" && !strings.HasPrefix(rest, "/") {
		return nil, newMountMismatchError(public.Path, mount)
	}

	target := *public
	target.Scheme = f.endpoint.Scheme
	target.Host = f.endpoint.Host
	target.User = f.endpoint.User
	target.Path = f.endpoint.Path + rest
	target.RawPath = ""
	target.Fragment = ""
	target.RawFragment = ""

	if public.RawPath != "" {
		if rawRest, ok := strings.CutPrefix(public.RawPath, mount); ok {
			target.RawPath = f.endpoint.EscapedPath() + rawRest
		}
	}

	return &target, nil
}

// Fetch sends req to the backend. The request graph is rewritten from the
// proxy namespace into the endpoint namespace; the response is returned
// untouched. Neither req.Header nor req.Graph is modified.
func (f *Fetcher) Fetch(ctx context.Context, req *FetchRequest, proxyURL *url.URL) (*FetchResult, error) {
	target, err := f.TargetURL(req.URL, proxyURL)
	if err != nil {
		return nil, err
	}

	header := outboundHeader(req.Header)
	header.Set("Host", target.Host)

	if f.mediaType != "" {
		header.Set("Accept", f.mediaType)
		if req.Graph != nil {
			header.Set("Content-Type", f.mediaType)
		}
	}

	body := rewrite.Graph(req.Graph, proxyURL.String(), f.endpoint.String())
	if body != nil {
		getProxyMetrics().rewritesTotal.WithLabelValues(directionRequest).Inc()
	}

	resp, err := f.client.Do(ctx, &transport.Request{
		Method: req.Method,
		URL:    target.String(),
		Header: header,
		Graph:  body,
	})
	if err != nil {
		return nil, NewFetchError(target.String(), err)
	}

	return &FetchResult{
		Status: resp.Status,
		Header: resp.Header,
		Graph:  resp.Graph,
	}, nil
}

// outboundHeader clones h without hop-by-hop headers and the headers the
// transport computes itself.
func outboundHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		return make(http.Header)
	}

	for _, v := range out.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = textproto.TrimString(name); name != "" {
				out.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		out.Del(name)
	}
	out.Del("Content-Length")
	out.Del("Accept-Encoding")

	return out
}
