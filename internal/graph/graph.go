// Package graph provides the RDF data model used by the proxy: terms,
// triples and unordered sets of triples.
package graph

import (
	"sort"
	"strconv"
	"strings"
)

// Well-known datatype IRIs.
const (
	XSDString     = "http://www.w3.org/2001/XMLSchema#string"
	XSDBoolean    = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDInteger    = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal    = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDDouble     = "http://www.w3.org/2001/XMLSchema#double"
	XSDDateTime   = "http://www.w3.org/2001/XMLSchema#dateTime"
	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
	RDFType       = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFFirst      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#first"
	RDFRest       = "http://www.w3.org/1999/02/22-rdf-syntax-ns#rest"
	RDFNil        = "http://www.w3.org/1999/02/22-rdf-syntax-ns#nil"
)

// TermKind tags the variant a Term holds.
type TermKind uint8

const (
	// KindNamedNode is an absolute IRI.
	KindNamedNode TermKind = iota + 1
	// KindBlankNode is a graph-local node without an IRI.
	KindBlankNode
	// KindLiteral is a lexical value with datatype and optional language.
	KindLiteral
)

// String returns the kind name.
func (k TermKind) String() string {
	switch k {
	case KindNamedNode:
		return "NamedNode"
	case KindBlankNode:
		return "BlankNode"
	case KindLiteral:
		return "Literal"
	default:
		return "Unknown"
	}
}

// Term is an RDF term. It is a comparable value and is never mutated.
type Term struct {
	Kind TermKind
	// Value is the IRI, the blank node label (without "_:") or the
	// literal lexical form.
	Value    string
	Datatype string
	Language string
}

// NamedNode returns an IRI term.
func NamedNode(iri string) Term {
	return Term{Kind: KindNamedNode, Value: iri}
}

// BlankNode returns a blank node term. A leading "_:" is stripped.
func BlankNode(label string) Term {
	return Term{Kind: KindBlankNode, Value: strings.TrimPrefix(label, "_:")}
}

// Literal returns a plain xsd:string literal.
func Literal(lexical string) Term {
	return Term{Kind: KindLiteral, Value: lexical, Datatype: XSDString}
}

// TypedLiteral returns a literal with the given datatype. An empty
// datatype means xsd:string.
func TypedLiteral(lexical, datatype string) Term {
	if datatype == "" {
		datatype = XSDString
	}
	return Term{Kind: KindLiteral, Value: lexical, Datatype: datatype}
}

// LangLiteral returns a language-tagged literal.
func LangLiteral(lexical, lang string) Term {
	return Term{Kind: KindLiteral, Value: lexical, Datatype: RDFLangString, Language: strings.ToLower(lang)}
}

// IsNamedNode reports whether t is an IRI.
func (t Term) IsNamedNode() bool { return t.Kind == KindNamedNode }

// IsBlankNode reports whether t is a blank node.
func (t Term) IsBlankNode() bool { return t.Kind == KindBlankNode }

// IsLiteral reports whether t is a literal.
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// IsZero reports whether t is the zero Term.
func (t Term) IsZero() bool { return t.Kind == 0 }

// String renders the term in N-Triples syntax.
func (t Term) String() string {
	switch t.Kind {
	case KindNamedNode:
		return "<" + t.Value + ">"
	case KindBlankNode:
		return "_:" + t.Value
	case KindLiteral:
		s := quoteLiteral(t.Value)
		if t.Language != "" {
			return s + "@" + t.Language
		}
		if t.Datatype != "" && t.Datatype != XSDString {
			return s + "^^<" + t.Datatype + ">"
		}
		return s
	default:
		return ""
	}
}

// Triple is an ordered (subject, predicate, object) statement.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewTriple returns a triple of the given terms.
func NewTriple(s, p, o Term) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

// String renders the triple as one N-Triples line without the newline.
func (t Triple) String() string {
	return t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String() + " ."
}

// Graph is an unordered set of triples. A nil *Graph stands for an
// absent graph; methods on a nil receiver behave like an empty one.
type Graph struct {
	triples map[Triple]struct{}
}

// New returns a graph holding the given triples. Duplicates collapse.
func New(triples ...Triple) *Graph {
	g := &Graph{triples: make(map[Triple]struct{}, len(triples))}
	for _, t := range triples {
		g.triples[t] = struct{}{}
	}
	return g
}

// Add inserts t and reports whether it was not already present.
func (g *Graph) Add(t Triple) bool {
	if g.triples == nil {
		g.triples = make(map[Triple]struct{})
	}
	if _, ok := g.triples[t]; ok {
		return false
	}
	g.triples[t] = struct{}{}
	return true
}

// Has reports whether t is in the graph.
func (g *Graph) Has(t Triple) bool {
	if g == nil {
		return false
	}
	_, ok := g.triples[t]
	return ok
}

// Len returns the number of triples.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.triples)
}

// Triples returns the triples sorted by their N-Triples rendering, so
// output built from it is deterministic.
func (g *Graph) Triples() []Triple {
	if g == nil {
		return nil
	}
	out := make([]Triple, 0, len(g.triples))
	for t := range g.triples {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// Each calls fn for every triple in unspecified order until fn returns false.
func (g *Graph) Each(fn func(Triple) bool) {
	if g == nil {
		return
	}
	for t := range g.triples {
		if !fn(t) {
			return
		}
	}
}

// Equal reports whether both graphs hold the same triples. Blank node
// labels are compared verbatim.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	equal := true
	g.Each(func(t Triple) bool {
		equal = other.Has(t)
		return equal
	})
	return equal
}

// Clone returns an independent copy of g. Cloning nil returns nil.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	c := &Graph{triples: make(map[Triple]struct{}, len(g.triples))}
	for t := range g.triples {
		c.triples[t] = struct{}{}
	}
	return c
}

// String renders the graph as sorted N-Triples.
func (g *Graph) String() string {
	var sb strings.Builder
	for _, t := range g.Triples() {
		sb.WriteString(t.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// quoteLiteral quotes s using the N-Triples string escapes. Other control
// characters are written as \u escapes; everything else is kept as UTF-8.
func quoteLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				b.WriteString(`\u`)
				hex := strconv.FormatInt(int64(r), 16)
				b.WriteString(strings.Repeat("0", 4-len(hex)))
				b.WriteString(strings.ToUpper(hex))
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
