package formats

import (
	"context"
	"fmt"

	"github.com/knakk/rdf"
	"github.com/piprate/json-gold/ld"

	"github.com/vyrodovalexey/rdfproxy/internal/graph"
)

// ntriplesCodec reads N-Triples with knakk/rdf and writes them through
// json-gold's N-Quads serializer, whose default-graph output is N-Triples.
// Lines carrying a graph label are rejected on read.
type ntriplesCodec struct{}

// NewNTriples returns the application/n-triples codec.
func NewNTriples() Codec {
	return ntriplesCodec{}
}

func (ntriplesCodec) MediaTypes() []string {
	return []string{MediaTypeNTriples}
}

func (ntriplesCodec) Extensions() []string {
	return []string{".nt"}
}

func (ntriplesCodec) Decode(ctx context.Context, data []byte) (*graph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return decodeTriples(ctx, data, rdf.NTriples)
}

func (ntriplesCodec) Encode(ctx context.Context, g *graph.Graph) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := toDataset(g)
	if err != nil {
		return nil, err
	}

	out, err := (&ld.NQuadRDFSerializer{}).Serialize(ds)
	if err != nil {
		return nil, err
	}
	s, ok := out.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected N-Quads result %T", out)
	}
	return []byte(s), nil
}
