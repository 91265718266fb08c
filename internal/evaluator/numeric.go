package evaluator

import (
	"strconv"

	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// numericValue extracts a float64 view of a literal for comparison and
// arithmetic, along with whether the literal is numeric at all. Exact
// xsd:decimal precision is out of scope for float64 math; values that
// need exact decimal semantics should be handled before reaching here.
func numericValue(l *rdf.Literal) (float64, bool) {
	if l == nil || l.Datatype == nil {
		return 0, false
	}
	switch l.Datatype.IRI {
	case rdf.XSDInteger.IRI, rdf.XSDDecimal.IRI, rdf.XSDFloat.IRI, rdf.XSDDouble.IRI:
		v, err := strconv.ParseFloat(l.Value, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

// numericRank implements xsd numeric promotion order: integer ⊂ decimal
// ⊂ float ⊂ double. Mixed arithmetic promotes to the wider type.
func numericRank(l *rdf.Literal) int {
	if l == nil || l.Datatype == nil {
		return -1
	}
	switch l.Datatype.IRI {
	case rdf.XSDInteger.IRI:
		return 0
	case rdf.XSDDecimal.IRI:
		return 1
	case rdf.XSDFloat.IRI:
		return 2
	case rdf.XSDDouble.IRI:
		return 3
	default:
		return -1
	}
}

func promotedDatatype(a, b *rdf.Literal) *rdf.NamedNode {
	ra, rb := numericRank(a), numericRank(b)
	if ra >= rb {
		return a.Datatype
	}
	return b.Datatype
}

func makeNumeric(v float64, dt *rdf.NamedNode) *rdf.Literal {
	if dt != nil && dt.IRI == rdf.XSDInteger.IRI {
		return rdf.NewIntegerLiteral(int64(v))
	}
	return rdf.NewLiteralWithDatatype(strconv.FormatFloat(v, 'g', -1, 64), dt)
}
