package results

import (
	"strings"

	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// N-Triples Results Format
// https://www.w3.org/TR/n-triples/

// FormatConstructResultNTriples serializes a CONSTRUCT/DESCRIBE quad set as
// N-Triples (the graph name is dropped; N-Triples has no notion of one).
func FormatConstructResultNTriples(quads []*rdf.Quad) ([]byte, error) {
	var builder strings.Builder
	for _, q := range quads {
		builder.WriteString(formatNTriplesTerm(q.Subject))
		builder.WriteString(" ")
		builder.WriteString(formatNTriplesTerm(q.Predicate))
		builder.WriteString(" ")
		builder.WriteString(formatNTriplesTerm(q.Object))
		builder.WriteString(" .\n")
	}
	return []byte(builder.String()), nil
}

func formatNTriplesTerm(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return "<" + t.IRI + ">"
	case *rdf.BlankNode:
		return "_:" + t.ID
	case *rdf.Literal:
		s := "\"" + escapeNTriplesString(t.Value) + "\""
		if t.Language != "" {
			return s + "@" + t.Language
		}
		if t.Datatype != nil {
			return s + "^^<" + t.Datatype.IRI + ">"
		}
		return s
	default:
		return term.String()
	}
}

// escapeNTriplesString escapes special characters in N-Triples string literals
func escapeNTriplesString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
