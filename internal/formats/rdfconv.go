package formats

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/knakk/rdf"

	"github.com/vyrodovalexey/rdfproxy/internal/graph"
)

// ctxCheckInterval is how many triples are decoded between context checks.
const ctxCheckInterval = 1024

// Lexical forms that the Turtle writer emits without quotes.
var (
	turtleInteger = regexp.MustCompile(`^[+-]?[0-9]+$`)
	turtleDecimal = regexp.MustCompile(`^[+-]?[0-9]*\.[0-9]+$`)
	turtleDouble  = regexp.MustCompile(`^[+-]?([0-9]+\.[0-9]*|\.[0-9]+|[0-9]+)[eE][+-]?[0-9]+$`)
	blankLabel    = regexp.MustCompile(`^[A-Za-z0-9_]([A-Za-z0-9_.-]*[A-Za-z0-9_-])?$`)
)

// errNotRepresented marks a term the Turtle writer would not write back verbatim.
var errNotRepresented = errors.New("term not representable in Turtle")

var xsdStringIRI, _ = rdf.NewIRI(graph.XSDString)

// cutReader stops yielding data once cut. The decoder lexes on its own
// goroutine, so a failed decode cuts the input and drains the remaining
// tokens to let that goroutine finish.
type cutReader struct {
	r   io.Reader
	cut atomic.Bool
}

func (c *cutReader) Read(p []byte) (int, error) {
	if c.cut.Load() {
		return 0, io.EOF
	}
	return c.r.Read(p)
}

// decodeTriples parses data in format into a graph.
func decodeTriples(ctx context.Context, data []byte, format rdf.Format) (*graph.Graph, error) {
	src := &cutReader{r: bytes.NewReader(data)}
	dec := rdf.NewTripleDecoder(src, format)
	g := graph.New()

	fail := func(err error) (*graph.Graph, error) {
		src.cut.Store(true)
		drainDecoder(dec, 2*len(data)+16)
		return nil, err
	}

	for n := 1; ; n++ {
		t, err := nextTriple(dec)
		if errors.Is(err, io.EOF) {
			return g, nil
		}
		if err != nil {
			return fail(err)
		}

		triple, err := fromRDFTriple(t)
		if err != nil {
			return fail(err)
		}
		g.Add(triple)

		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fail(err)
			}
		}
	}
}

// nextTriple decodes one triple, turning a decoder panic into an error.
func nextTriple(dec rdf.TripleDecoder) (t rdf.Triple, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder failure: %v", r)
		}
	}()
	return dec.Decode()
}

// drainDecoder reads at most limit more tokens, until the decoder reports
// the end of its input.
func drainDecoder(dec rdf.TripleDecoder, limit int) {
	for i := 0; i < limit; i++ {
		if _, err := nextTriple(dec); errors.Is(err, io.EOF) {
			return
		}
	}
}

func fromRDFTriple(t rdf.Triple) (graph.Triple, error) {
	if t.Subj == nil || t.Pred == nil || t.Obj == nil {
		return graph.Triple{}, errors.New("incomplete triple")
	}
	s, err := fromRDFTerm(t.Subj)
	if err != nil {
		return graph.Triple{}, err
	}
	p, err := fromRDFTerm(t.Pred)
	if err != nil {
		return graph.Triple{}, err
	}
	o, err := fromRDFTerm(t.Obj)
	if err != nil {
		return graph.Triple{}, err
	}
	return graph.NewTriple(s, p, o), nil
}

func fromRDFTerm(t rdf.Term) (graph.Term, error) {
	switch v := t.(type) {
	case rdf.IRI:
		return graph.NamedNode(v.String()), nil
	case rdf.Blank:
		return graph.BlankNode(v.String()), nil
	case rdf.Literal:
		if v.Lang() != "" {
			return graph.LangLiteral(v.String(), v.Lang()), nil
		}
		return graph.TypedLiteral(v.String(), v.DataType.String()), nil
	default:
		return graph.Term{}, fmt.Errorf("unsupported term %T", t)
	}
}

// toRDFTriples converts g for the Turtle writer. It fails with
// errNotRepresented when a term would not be written back verbatim.
func toRDFTriples(g *graph.Graph) ([]rdf.Triple, error) {
	triples := g.Triples()
	out := make([]rdf.Triple, 0, len(triples))

	for _, t := range triples {
		s, err := toRDFTerm(t.Subject)
		if err != nil {
			return nil, err
		}
		p, err := toRDFTerm(t.Predicate)
		if err != nil {
			return nil, err
		}
		o, err := toRDFTerm(t.Object)
		if err != nil {
			return nil, err
		}

		subj, ok := s.(rdf.Subject)
		if !ok {
			return nil, fmt.Errorf("%w: %s as subject", errNotRepresented, t.Subject)
		}
		pred, ok := p.(rdf.Predicate)
		if !ok {
			return nil, fmt.Errorf("%w: %s as predicate", errNotRepresented, t.Predicate)
		}
		obj, ok := o.(rdf.Object)
		if !ok {
			return nil, fmt.Errorf("%w: %s as object", errNotRepresented, t.Object)
		}
		out = append(out, rdf.Triple{Subj: subj, Pred: pred, Obj: obj})
	}
	return out, nil
}

func toRDFTerm(t graph.Term) (rdf.Term, error) {
	switch t.Kind {
	case graph.KindNamedNode:
		iri, err := rdf.NewIRI(t.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errNotRepresented, err)
		}
		return iri, nil
	case graph.KindBlankNode:
		if !blankLabel.MatchString(t.Value) {
			return nil, fmt.Errorf("%w: blank node label %q", errNotRepresented, t.Value)
		}
		return rdf.NewBlank(t.Value)
	case graph.KindLiteral:
		return toRDFLiteral(t)
	default:
		return nil, fmt.Errorf("unsupported term kind %s", t.Kind)
	}
}

func toRDFLiteral(t graph.Term) (rdf.Term, error) {
	if t.Language != "" {
		l, err := rdf.NewLangLiteral(t.Value, t.Language)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errNotRepresented, err)
		}
		return l, nil
	}

	if t.Datatype == "" || t.Datatype == graph.XSDString {
		return rdf.NewTypedLiteral(t.Value, xsdStringIRI), nil
	}

	var bare *regexp.Regexp
	switch t.Datatype {
	case graph.RDFLangString:
		return nil, fmt.Errorf("%w: langString without language", errNotRepresented)
	case graph.XSDInteger:
		bare = turtleInteger
	case graph.XSDDecimal:
		bare = turtleDecimal
	case graph.XSDDouble:
		bare = turtleDouble
	case graph.XSDBoolean:
		if t.Value != "true" && t.Value != "false" {
			return nil, fmt.Errorf("%w: boolean %q", errNotRepresented, t.Value)
		}
	case graph.XSDDateTime:
		if strings.ContainsAny(t.Value, "\"\\\n\r") {
			return nil, fmt.Errorf("%w: dateTime %q", errNotRepresented, t.Value)
		}
	}
	if bare != nil && !bare.MatchString(t.Value) {
		return nil, fmt.Errorf("%w: %q as %s", errNotRepresented, t.Value, t.Datatype)
	}

	dt, err := rdf.NewIRI(t.Datatype)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotRepresented, err)
	}
	return rdf.NewTypedLiteral(t.Value, dt), nil
}
