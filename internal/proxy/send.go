package proxy

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vyrodovalexey/rdfproxy/internal/graph"
	"github.com/vyrodovalexey/rdfproxy/internal/rewrite"
)

// GraphResponder writes a graph as the response, serialized in the media
// type negotiated against accept. rdfhttp.Responder is the default.
type GraphResponder interface {
	SendGraph(ctx context.Context, w http.ResponseWriter, status int, g *graph.Graph, accept string) error
}

// Sender writes fetch results back to the client.
type Sender struct {
	endpoint  *url.URL
	responder GraphResponder
}

// NewSender returns a sender that maps graphs out of the endpoint namespace.
func NewSender(endpoint *url.URL, responder GraphResponder) *Sender {
	return &Sender{endpoint: endpoint, responder: responder}
}

// Send writes result with its status. A result graph is rewritten from the
// endpoint namespace into proxyURL and sent negotiated against accept.
// Without a graph only the status is written.
func (s *Sender) Send(ctx context.Context, w http.ResponseWriter, result *FetchResult, proxyURL *url.URL, accept string) error {
	if result.Graph == nil {
		w.WriteHeader(result.Status)
		return nil
	}

	g := rewrite.Graph(result.Graph, s.endpoint.String(), proxyURL.String())
	getProxyMetrics().rewritesTotal.WithLabelValues(directionResponse).Inc()

	if err := s.responder.SendGraph(ctx, w, result.Status, g, accept); err != nil {
		return &Error{Op: OpSend, Message: "send response graph", Cause: err}
	}
	return nil
}
