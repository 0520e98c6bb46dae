package formats

import (
	"bytes"
	"context"
	"errors"

	"github.com/knakk/rdf"

	"github.com/vyrodovalexey/rdfproxy/internal/graph"
)

// turtleCodec parses and writes text/turtle with knakk/rdf.
type turtleCodec struct{}

// NewTurtle returns the text/turtle codec.
func NewTurtle() Codec {
	return turtleCodec{}
}

func (turtleCodec) MediaTypes() []string {
	return []string{MediaTypeTurtle}
}

func (turtleCodec) Extensions() []string {
	return []string{".ttl"}
}

// Decode parses a Turtle document. Relative IRIs are appended to the
// document base as written.
func (turtleCodec) Decode(ctx context.Context, data []byte) (*graph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return decodeTriples(ctx, data, rdf.Turtle)
}

// Encode writes g grouped by subject and predicate with IRIs in full. A
// graph holding a term Turtle cannot carry verbatim, such as a numeric
// literal with a non-numeric lexical form, is written as N-Triples, which
// every Turtle parser reads.
func (turtleCodec) Encode(ctx context.Context, g *graph.Graph) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	triples, err := toRDFTriples(g)
	if errors.Is(err, errNotRepresented) {
		return ntriplesCodec{}.Encode(ctx, g)
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := rdf.NewTripleEncoder(&buf, rdf.Turtle)
	enc.GenerateNamespaces = false
	if err := enc.EncodeAll(triples); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	if buf.Len() > 0 {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
