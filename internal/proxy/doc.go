// Package proxy provides the namespace rewriting RDF proxy.
//
// A Proxy maps one public mount path onto one backend endpoint. Request
// graphs are rewritten from the public namespace into the endpoint
// namespace before they are sent, and response graphs are rewritten back
// before they are serialized for the client in the negotiated media type.
//
// # Features
//
//   - Prefix substitution of request URLs and graph identifiers
//   - Optional forced media type for the backend conversation
//   - Hop-by-hop header removal per RFC 7230
//   - One error handler for every failure, with JSON error bodies
//   - Forward middleware that rewrites responses produced by another handler
//   - net/http and gin adapters
//
// # Usage
//
// Create a proxy and mount it:
//
//	p, err := proxy.New("http://backend:8080/",
//	    proxy.WithPathname("/data/"),
//	    proxy.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mux.Handle("/data/", p)
//
// Rewrite the output of an existing handler:
//
//	mux.Handle("/docs/", proxy.Forward("http://localhost/", "https://example.org/")(docsHandler))
package proxy
