package results

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/evaluator"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// SPARQL CSV Results Format
// https://www.w3.org/TR/sparql11-results-csv-tsv/

// FormatSelectResultsCSV converts a SELECT result to SPARQL CSV format
func FormatSelectResultsCSV(result *evaluator.Result) ([]byte, error) {
	var builder strings.Builder
	w := csv.NewWriter(&builder)

	bnodeMap := createBlankNodeMapping(result)

	if err := w.Write(result.Vars); err != nil {
		return nil, err
	}

	for _, row := range result.Rows {
		line := make([]string, len(result.Vars))
		for i, varName := range result.Vars {
			if term, ok := row[algebra.Variable(varName)]; ok {
				line[i] = termToCSVValue(term, bnodeMap)
			}
		}
		if err := w.Write(line); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(builder.String()), nil
}

// FormatAskResultCSV converts an ASK result to SPARQL CSV format
func FormatAskResultCSV(result *evaluator.Result) ([]byte, error) {
	var builder strings.Builder
	w := csv.NewWriter(&builder)

	if err := w.Write([]string{"result"}); err != nil {
		return nil, err
	}
	value := "false"
	if result.Ask {
		value = "true"
	}
	if err := w.Write([]string{value}); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(builder.String()), nil
}

// createBlankNodeMapping maps internal blank node IDs to canonical labels
// (a, b, c, ... then b0, b1, b2 after z), in order of first appearance.
func createBlankNodeMapping(result *evaluator.Result) map[string]string {
	bnodeMap := make(map[string]string)
	counter := 0
	for _, row := range result.Rows {
		for _, term := range row {
			if bn, ok := term.(*rdf.BlankNode); ok {
				if _, exists := bnodeMap[bn.ID]; !exists {
					var label string
					if counter < 26 {
						label = string(rune('a' + counter))
					} else {
						label = fmt.Sprintf("b%d", counter-26)
					}
					bnodeMap[bn.ID] = label
					counter++
				}
			}
		}
	}
	return bnodeMap
}

// termToCSVValue converts an RDF term to a CSV value string: IRIs without
// angle brackets, literals without quotes (the writer handles escaping).
func termToCSVValue(term rdf.Term, bnodeMap map[string]string) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return t.IRI

	case *rdf.BlankNode:
		if canonical, ok := bnodeMap[t.ID]; ok {
			return "_:" + canonical
		}
		return "_:" + t.ID

	case *rdf.Literal:
		if t.Language != "" {
			return t.Value + "@" + t.Language
		}
		if t.Datatype != nil && t.Datatype.IRI == rdf.XSDDouble.IRI {
			return formatDouble(t.Value)
		}
		return t.Value

	default:
		return term.String()
	}
}

// formatDouble formats a double value with uppercase E notation and a
// decimal point before it, matching the SPARQL results spec examples.
func formatDouble(value string) string {
	value = strings.ReplaceAll(value, "e+", "E")
	value = strings.ReplaceAll(value, "e-", "E-")
	value = strings.ReplaceAll(value, "e", "E")

	if strings.Contains(value, "E") {
		parts := strings.Split(value, "E")
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
			value = mantissa + "E" + exponent
		}
	}
	return value
}
