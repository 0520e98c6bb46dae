// Package formats provides the RDF format registry: media type lookup,
// parsing, serialization and Accept negotiation.
package formats

import (
	"context"
	"mime"
	"strings"

	"github.com/vyrodovalexey/rdfproxy/internal/graph"
)

// Media types handled by the default registry.
const (
	MediaTypeNTriples = "application/n-triples"
	MediaTypeTurtle   = "text/turtle"
	MediaTypeJSONLD   = "application/ld+json"
)

// Codec converts between one RDF serialization and graphs.
type Codec interface {
	// MediaTypes lists the media types the codec handles, canonical first.
	MediaTypes() []string
	// Extensions lists file extensions including the dot.
	Extensions() []string
	Decode(ctx context.Context, data []byte) (*graph.Graph, error)
	Encode(ctx context.Context, g *graph.Graph) ([]byte, error)
}

// Registry resolves codecs by media type. It is built once and only read
// afterwards, so one instance can be shared by all requests.
type Registry struct {
	codecs     []Codec
	byType     map[string]Codec
	byExt      map[string]Codec
	mediaTypes []string
	extensions []string
}

// NewRegistry builds a registry from codecs. Earlier codecs win when two
// claim the same media type, and their canonical types come first in
// Parsers and Serializers.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{
		byType: make(map[string]Codec),
		byExt:  make(map[string]Codec),
	}

	for _, c := range codecs {
		r.codecs = append(r.codecs, c)
		for _, mt := range c.MediaTypes() {
			key := normalizeMediaType(mt)
			if _, exists := r.byType[key]; exists {
				continue
			}
			r.byType[key] = c
			r.mediaTypes = append(r.mediaTypes, key)
		}
		for _, ext := range c.Extensions() {
			ext = strings.ToLower(ext)
			if _, exists := r.byExt[ext]; !exists {
				r.byExt[ext] = c
				r.extensions = append(r.extensions, ext)
			}
		}
	}

	return r
}

// Default returns a registry with the N-Triples, Turtle and JSON-LD codecs.
func Default() *Registry {
	return NewRegistry(NewNTriples(), NewTurtle(), NewJSONLD())
}

// Parsers returns the media types that can be parsed, in preference order.
func (r *Registry) Parsers() []string {
	out := make([]string, len(r.mediaTypes))
	copy(out, r.mediaTypes)
	return out
}

// Serializers returns the media types that can be serialized, in preference order.
func (r *Registry) Serializers() []string {
	return r.Parsers()
}

// Supports reports whether mediaType has a codec. Parameters are ignored.
func (r *Registry) Supports(mediaType string) bool {
	_, ok := r.byType[normalizeMediaType(mediaType)]
	return ok
}

// Extensions returns the known file extensions in codec order.
func (r *Registry) Extensions() []string {
	out := make([]string, len(r.extensions))
	copy(out, r.extensions)
	return out
}

// MediaTypeForExtension returns the canonical media type for a file
// extension such as ".ttl".
func (r *Registry) MediaTypeForExtension(ext string) (string, bool) {
	c, ok := r.byExt[strings.ToLower(ext)]
	if !ok {
		return "", false
	}
	return normalizeMediaType(c.MediaTypes()[0]), true
}

// Parse decodes data in mediaType into a new graph.
func (r *Registry) Parse(ctx context.Context, mediaType string, data []byte) (*graph.Graph, error) {
	c, ok := r.byType[normalizeMediaType(mediaType)]
	if !ok {
		return nil, newUnsupportedError("parse", mediaType)
	}

	g, err := c.Decode(ctx, data)
	if err != nil {
		return nil, newParseError(mediaType, err)
	}
	return g, nil
}

// Serialize encodes g in mediaType.
func (r *Registry) Serialize(ctx context.Context, mediaType string, g *graph.Graph) ([]byte, error) {
	c, ok := r.byType[normalizeMediaType(mediaType)]
	if !ok {
		return nil, newUnsupportedError("serialize", mediaType)
	}

	data, err := c.Encode(ctx, g)
	if err != nil {
		return nil, newSerializeError(mediaType, err)
	}
	return data, nil
}

// normalizeMediaType lowercases a media type and drops its parameters.
func normalizeMediaType(mediaType string) string {
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(strings.Split(mediaType, ";")[0]))
}

// NormalizeMediaType is the exported form of the lookup key used by the registry.
func NormalizeMediaType(mediaType string) string {
	return normalizeMediaType(mediaType)
}
