package formats

import (
	"strings"

	"github.com/munnerz/goautoneg"
)

// Negotiate picks the best of offered for an Accept header value. An
// empty header accepts anything, so the first offer wins. Clauses with
// q=0 refuse what they name, and a wildcard never selects a refused type.
// It returns ErrNotAcceptable when nothing matches.
func Negotiate(accept string, offered []string) (string, error) {
	if len(offered) == 0 {
		return "", ErrNotAcceptable
	}
	if strings.TrimSpace(accept) == "" {
		return offered[0], nil
	}

	clauses := goautoneg.ParseAccept(accept)

	var refused []goautoneg.Accept
	for _, clause := range clauses {
		if clause.Q <= 0 {
			refused = append(refused, clause)
		}
	}

	for _, clause := range clauses {
		if clause.Q <= 0 {
			continue
		}
		typ, sub := strings.ToLower(clause.Type), strings.ToLower(clause.SubType)
		for _, mt := range offered {
			offerType, offerSub, _ := strings.Cut(mt, "/")
			switch {
			case typ == offerType && sub == offerSub:
				return mt, nil
			case typ == "*" && sub == "*", typ == offerType && sub == "*":
				if !matchesAny(refused, offerType, offerSub) {
					return mt, nil
				}
			}
		}
	}
	return "", ErrNotAcceptable
}

func matchesAny(clauses []goautoneg.Accept, typ, sub string) bool {
	for _, c := range clauses {
		ct, cs := strings.ToLower(c.Type), strings.ToLower(c.SubType)
		if (ct == "*" || ct == typ) && (cs == "*" || cs == sub) {
			return true
		}
	}
	return false
}

// NegotiateParser negotiates accept against the registry's parsers.
func (r *Registry) NegotiateParser(accept string) (string, error) {
	return Negotiate(accept, r.Parsers())
}

// NegotiateSerializer negotiates accept against the registry's serializers.
func (r *Registry) NegotiateSerializer(accept string) (string, error) {
	return Negotiate(accept, r.Serializers())
}
