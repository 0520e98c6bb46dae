// Package rewrite substitutes IRI namespace prefixes in RDF terms and graphs.
package rewrite

import (
	"strings"

	"github.com/vyrodovalexey/rdfproxy/internal/graph"
)

// Namespace is a (from, to) pair of absolute IRI prefixes.
type Namespace struct {
	From string
	To   string
}

// Reverse returns the pair with From and To swapped.
func (n Namespace) Reverse() Namespace {
	return Namespace{From: n.To, To: n.From}
}

// Term rewrites t with the pair.
func (n Namespace) Term(t graph.Term) graph.Term {
	return Term(t, n.From, n.To)
}

// Graph rewrites g with the pair.
func (n Namespace) Graph(g *graph.Graph) *graph.Graph {
	return Graph(g, n.From, n.To)
}

// Term returns t with its from prefix replaced by to when t is a named
// node starting with from. Any other term is returned unchanged.
func Term(t graph.Term, from, to string) graph.Term {
	if t.Kind == graph.KindNamedNode && strings.HasPrefix(t.Value, from) {
		return graph.NamedNode(to + t.Value[len(from):])
	}
	return t
}

// Graph returns a new graph with every subject, predicate and object
// passed through Term. A nil graph is returned as nil. g is not modified.
func Graph(g *graph.Graph, from, to string) *graph.Graph {
	if g == nil {
		return nil
	}

	out := graph.New()
	g.Each(func(t graph.Triple) bool {
		out.Add(graph.NewTriple(
			Term(t.Subject, from, to),
			Term(t.Predicate, from, to),
			Term(t.Object, from, to),
		))
		return true
	})
	return out
}
