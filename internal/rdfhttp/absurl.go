// Package rdfhttp holds the HTTP side of graph handling: absolute URL
// resolution of incoming requests, request body parsing and negotiated
// graph responses.
package rdfhttp

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Forwarded request headers honored when TrustForwardedHeaders is set.
const (
	HeaderForwardedProto = "X-Forwarded-Proto"
	HeaderForwardedHost  = "X-Forwarded-Host"
)

// URLResolver computes the absolute URL a client used to reach the server.
type URLResolver struct {
	// TrustForwardedHeaders makes X-Forwarded-Proto and X-Forwarded-Host
	// override the connection's own scheme and Host header. Enable it only
	// behind a proxy that sets them.
	TrustForwardedHeaders bool
}

// Resolve returns the absolute URL of r. The host is lowercased and a
// default port for the scheme is dropped. Path and query are kept.
func (u URLResolver) Resolve(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}

	if u.TrustForwardedHeaders {
		if proto := firstValue(r.Header.Get(HeaderForwardedProto)); proto != "" {
			scheme = strings.ToLower(proto)
		}
		if fwdHost := firstValue(r.Header.Get(HeaderForwardedHost)); fwdHost != "" {
			host = fwdHost
		}
	}

	return &url.URL{
		Scheme:   scheme,
		Host:     normalizeHost(scheme, host),
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	}
}

// firstValue returns the first element of a comma separated header value.
func firstValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

func normalizeHost(scheme, host string) string {
	host = strings.ToLower(host)

	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		if strings.Contains(h, ":") {
			return "[" + h + "]"
		}
		return h
	}
	return host
}
