package results

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/evaluator"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// SPARQL TSV Results Format
// https://www.w3.org/TR/sparql11-results-csv-tsv/

// FormatSelectResultsTSV converts a SELECT result to SPARQL TSV format
func FormatSelectResultsTSV(result *evaluator.Result) ([]byte, error) {
	var builder strings.Builder

	bnodeMap := createBlankNodeMappingTSV(result)

	for i, varName := range result.Vars {
		if i > 0 {
			builder.WriteString("\t")
		}
		builder.WriteString("?")
		builder.WriteString(varName)
	}
	builder.WriteString("\n")

	for _, row := range result.Rows {
		for i, varName := range result.Vars {
			if i > 0 {
				builder.WriteString("\t")
			}
			if term, ok := row[algebra.Variable(varName)]; ok {
				builder.WriteString(termToTSVValue(term, bnodeMap))
			}
		}
		builder.WriteString("\n")
	}

	return []byte(builder.String()), nil
}

// FormatAskResultTSV converts an ASK result to SPARQL TSV format
func FormatAskResultTSV(result *evaluator.Result) ([]byte, error) {
	var builder strings.Builder

	builder.WriteString("?result\n")
	if result.Ask {
		builder.WriteString("true")
	} else {
		builder.WriteString("false")
	}
	builder.WriteString("\n")

	return []byte(builder.String()), nil
}

// createBlankNodeMappingTSV maps internal blank node IDs to canonical
// b0/b1/b2... labels, in order of first appearance.
func createBlankNodeMappingTSV(result *evaluator.Result) map[string]string {
	bnodeMap := make(map[string]string)
	counter := 0

	for _, row := range result.Rows {
		for _, term := range row {
			if bn, ok := term.(*rdf.BlankNode); ok {
				if _, exists := bnodeMap[bn.ID]; !exists {
					bnodeMap[bn.ID] = fmt.Sprintf("b%d", counter)
					counter++
				}
			}
		}
	}

	return bnodeMap
}

// termToTSVValue converts an RDF term to a TSV value string. IRIs are
// angle-bracketed, numeric literals (integer/decimal/double) are bare,
// everything else is quoted with an optional @lang or ^^<datatype> suffix.
func termToTSVValue(term rdf.Term, bnodeMap map[string]string) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return "<" + t.IRI + ">"

	case *rdf.BlankNode:
		if canonical, ok := bnodeMap[t.ID]; ok {
			return "_:" + canonical
		}
		return "_:" + t.ID

	case *rdf.Literal:
		if t.Language != "" {
			escaped := escapeTSVString(t.Value)
			return "\"" + escaped + "\"@" + t.Language
		} else if t.Datatype != nil {
			datatypeIRI := t.Datatype.IRI

			if datatypeIRI == rdf.XSDInteger.IRI || datatypeIRI == rdf.XSDDecimal.IRI || datatypeIRI == rdf.XSDDouble.IRI {
				if datatypeIRI == rdf.XSDDouble.IRI {
					return formatDoubleTSV(t.Value)
				}
				return t.Value
			}

			escaped := escapeTSVString(t.Value)
			return "\"" + escaped + "\"^^<" + datatypeIRI + ">"
		}
		escaped := escapeTSVString(t.Value)
		return "\"" + escaped + "\""

	default:
		return term.String()
	}
}

// formatDoubleTSV formats a double value with lowercase e notation.
func formatDoubleTSV(value string) string {
	value = strings.ReplaceAll(value, "E+", "e")
	value = strings.ReplaceAll(value, "E-", "e-")
	value = strings.ReplaceAll(value, "E", "e")
	value = strings.ReplaceAll(value, "e+", "e")

	if strings.Contains(value, "e") {
		parts := strings.Split(value, "e")
		if len(parts) == 2 {
			mantissa, exponent := parts[0], parts[1]
			if !strings.Contains(mantissa, ".") {
				mantissa += ".0"
			}
			isNegative := strings.HasPrefix(exponent, "-")
			if isNegative {
				exponent = exponent[1:]
			}
			exponent = strings.TrimLeft(exponent, "0")
			if exponent == "" {
				exponent = "0"
			}
			if isNegative {
				exponent = "-" + exponent
			}
			value = mantissa + "e" + exponent
		}
	}

	return value
}

// escapeTSVString escapes tabs, newlines, carriage returns, quotes and
// backslashes in TSV literal values.
func escapeTSVString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}
