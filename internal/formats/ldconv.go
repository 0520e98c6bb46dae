package formats

import (
	"fmt"

	"github.com/piprate/json-gold/ld"

	"github.com/vyrodovalexey/rdfproxy/internal/graph"
)

// defaultGraphName is the key json-gold uses for the default graph.
const defaultGraphName = "@default"

// toDataset converts g into a json-gold dataset holding only the default graph.
func toDataset(g *graph.Graph) (*ld.RDFDataset, error) {
	ds := ld.NewRDFDataset()
	quads := make([]*ld.Quad, 0, g.Len())

	for _, t := range g.Triples() {
		s, err := toLDNode(t.Subject)
		if err != nil {
			return nil, err
		}
		p, err := toLDNode(t.Predicate)
		if err != nil {
			return nil, err
		}
		o, err := toLDNode(t.Object)
		if err != nil {
			return nil, err
		}
		quads = append(quads, &ld.Quad{Subject: s, Predicate: p, Object: o})
	}

	ds.Graphs[defaultGraphName] = quads
	return ds, nil
}

// fromDataset flattens every graph of ds into one triple set. Named graph
// labels are dropped since the proxy model carries triples only.
func fromDataset(ds *ld.RDFDataset) (*graph.Graph, error) {
	g := graph.New()
	if ds == nil {
		return g, nil
	}

	for _, quads := range ds.Graphs {
		for _, q := range quads {
			if q == nil {
				continue
			}
			s, err := fromLDNode(q.Subject)
			if err != nil {
				return nil, err
			}
			p, err := fromLDNode(q.Predicate)
			if err != nil {
				return nil, err
			}
			o, err := fromLDNode(q.Object)
			if err != nil {
				return nil, err
			}
			g.Add(graph.NewTriple(s, p, o))
		}
	}

	return g, nil
}

func toLDNode(t graph.Term) (ld.Node, error) {
	switch t.Kind {
	case graph.KindNamedNode:
		return ld.NewIRI(t.Value), nil
	case graph.KindBlankNode:
		return ld.NewBlankNode("_:" + t.Value), nil
	case graph.KindLiteral:
		datatype := t.Datatype
		if t.Language != "" {
			datatype = graph.RDFLangString
		} else if datatype == "" {
			datatype = graph.XSDString
		}
		return ld.NewLiteral(t.Value, datatype, t.Language), nil
	default:
		return nil, fmt.Errorf("unsupported term kind %s", t.Kind)
	}
}

func fromLDNode(n ld.Node) (graph.Term, error) {
	switch v := n.(type) {
	case *ld.IRI:
		return graph.NamedNode(v.Value), nil
	case ld.IRI:
		return graph.NamedNode(v.Value), nil
	case *ld.BlankNode:
		return graph.BlankNode(v.Attribute), nil
	case ld.BlankNode:
		return graph.BlankNode(v.Attribute), nil
	case *ld.Literal:
		return literalTerm(v.Value, v.Datatype, v.Language), nil
	case ld.Literal:
		return literalTerm(v.Value, v.Datatype, v.Language), nil
	default:
		return graph.Term{}, fmt.Errorf("unsupported node %T", n)
	}
}

func literalTerm(value, datatype, language string) graph.Term {
	if language != "" {
		return graph.LangLiteral(value, language)
	}
	return graph.TypedLiteral(value, datatype)
}
