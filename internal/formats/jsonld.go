package formats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/piprate/json-gold/ld"

	"github.com/vyrodovalexey/rdfproxy/internal/graph"
)

const nquadsFormat = "application/n-quads"

// jsonldCodec converts JSON-LD documents with json-gold's processor.
type jsonldCodec struct{}

// NewJSONLD returns the application/ld+json codec.
func NewJSONLD() Codec {
	return jsonldCodec{}
}

func (jsonldCodec) MediaTypes() []string {
	return []string{MediaTypeJSONLD}
}

func (jsonldCodec) Extensions() []string {
	return []string{".jsonld", ".json"}
}

func (jsonldCodec) Decode(ctx context.Context, data []byte) (*graph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	result, err := ld.NewJsonLdProcessor().ToRDF(doc, ld.NewJsonLdOptions(""))
	if err != nil {
		return nil, err
	}
	ds, ok := result.(*ld.RDFDataset)
	if !ok {
		return nil, fmt.Errorf("unexpected ToRDF result %T", result)
	}
	return fromDataset(ds)
}

func (jsonldCodec) Encode(ctx context.Context, g *graph.Graph) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := toDataset(g)
	if err != nil {
		return nil, err
	}
	nquads, err := (&ld.NQuadRDFSerializer{}).Serialize(ds)
	if err != nil {
		return nil, err
	}

	opts := ld.NewJsonLdOptions("")
	opts.Format = nquadsFormat
	doc, err := ld.NewJsonLdProcessor().FromRDF(nquads, opts)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
