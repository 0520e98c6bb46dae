package rdfhttp

import (
	"context"
	"net/http"
	"strconv"

	"github.com/vyrodovalexey/rdfproxy/internal/formats"
	"github.com/vyrodovalexey/rdfproxy/internal/graph"
)

// Responder writes graphs as HTTP responses in a negotiated media type.
type Responder struct {
	formats *formats.Registry
}

// NewResponder returns a responder backed by reg.
func NewResponder(reg *formats.Registry) *Responder {
	return &Responder{formats: reg}
}

// SendGraph serializes g in the media type that best matches accept and
// writes it with status. Nothing is written when negotiation or
// serialization fails, so the caller can still send an error response.
func (s *Responder) SendGraph(ctx context.Context, w http.ResponseWriter, status int, g *graph.Graph, accept string) error {
	mediaType, err := s.formats.NegotiateSerializer(accept)
	if err != nil {
		return err
	}

	body, err := s.formats.Serialize(ctx, mediaType, g)
	if err != nil {
		return err
	}

	h := w.Header()
	h.Set("Content-Type", mediaType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Add("Vary", "Accept")
	w.WriteHeader(status)

	_, err = w.Write(body)
	return err
}
