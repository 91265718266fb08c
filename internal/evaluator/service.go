package evaluator

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/oxierr"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// evalService executes a federated SERVICE clause against a remote SPARQL
// 1.1 Protocol endpoint: serialize node.Child back into a SELECT query
// text, fetch it synchronously over HTTP, and decode the SPARQL JSON
// results format into bindings merged with parent.
//
// Only BGP-shaped service patterns serialize; anything richer (nested
// OPTIONAL/UNION inside SERVICE) is rejected with an evaluation error so
// SILENT can degrade gracefully per the caller's contract.
func evalService(ec *EvalContext, node algebra.Service, parent Binding) ([]Binding, error) {
	endpoint, ok := resolveServiceEndpoint(node.Endpoint, parent)
	if !ok {
		return nil, oxierr.Evaluation("SERVICE endpoint is unbound")
	}

	bgp, ok := node.Child.(algebra.BGP)
	if !ok {
		return nil, oxierr.Evaluation("SERVICE only supports basic graph patterns in this evaluator")
	}

	vars := serviceVars(bgp)
	query := serializeServiceQuery(bgp, vars, parent)

	req, err := http.NewRequestWithContext(ec.Ctx, http.MethodGet, endpoint+"?"+url.Values{"query": {query}}.Encode(), nil)
	if err != nil {
		return nil, oxierr.Evaluation("SERVICE request construction failed: %v", err)
	}
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, oxierr.Evaluation("SERVICE request to %s failed: %v", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, oxierr.Evaluation("SERVICE endpoint %s returned status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, oxierr.Evaluation("reading SERVICE response: %v", err)
	}

	results, err := decodeSparqlJSON(body)
	if err != nil {
		return nil, err
	}

	out := make([]Binding, 0, len(results))
	for _, row := range results {
		merged := parent.Clone()
		ok := true
		for k, v := range row {
			if existing, has := merged[algebra.Variable(k)]; has && !termEquals(existing, v) {
				ok = false
				break
			}
			merged[algebra.Variable(k)] = v
		}
		if ok {
			out = append(out, merged)
		}
	}
	return out, nil
}

func resolveServiceEndpoint(t algebra.TermOrVariable, parent Binding) (string, bool) {
	if !t.IsVariable() {
		nn, ok := t.Term.(*rdf.NamedNode)
		if !ok {
			return "", false
		}
		return nn.IRI, true
	}
	v, ok := parent[t.Var]
	if !ok {
		return "", false
	}
	nn, ok := v.(*rdf.NamedNode)
	if !ok {
		return "", false
	}
	return nn.IRI, true
}

func serviceVars(bgp algebra.BGP) []algebra.Variable {
	seen := map[algebra.Variable]bool{}
	var out []algebra.Variable
	add := func(t algebra.TermOrVariable) {
		if t.IsVariable() && !seen[t.Var] {
			seen[t.Var] = true
			out = append(out, t.Var)
		}
	}
	for _, p := range bgp.Patterns {
		add(p.Subject)
		add(p.Predicate)
		add(p.Object)
	}
	return out
}

func serializeServiceQuery(bgp algebra.BGP, vars []algebra.Variable, parent Binding) string {
	var sb strings.Builder
	sb.WriteString("SELECT * WHERE { ")
	for _, p := range bgp.Patterns {
		sb.WriteString(serializeTermOrVar(p.Subject, parent))
		sb.WriteByte(' ')
		sb.WriteString(serializeTermOrVar(p.Predicate, parent))
		sb.WriteByte(' ')
		sb.WriteString(serializeTermOrVar(p.Object, parent))
		sb.WriteString(" . ")
	}
	sb.WriteString("}")
	return sb.String()
}

func serializeTermOrVar(t algebra.TermOrVariable, parent Binding) string {
	if t.IsVariable() {
		if v, ok := parent[t.Var]; ok {
			return serializeTerm(v)
		}
		return "?" + string(t.Var)
	}
	return serializeTerm(t.Term)
}

func serializeTerm(t rdf.Term) string {
	switch v := t.(type) {
	case *rdf.NamedNode:
		return "<" + v.IRI + ">"
	case *rdf.BlankNode:
		return "_:" + v.ID
	case *rdf.Literal:
		s := fmt.Sprintf("%q", v.Value)
		if v.Language != "" {
			return s + "@" + v.Language
		}
		if v.Datatype != nil {
			return s + "^^<" + v.Datatype.IRI + ">"
		}
		return s
	default:
		return t.String()
	}
}

type sparqlJSONResponse struct {
	Head    struct{ Vars []string } `json:"head"`
	Results struct {
		Bindings []map[string]sparqlJSONTerm `json:"bindings"`
	} `json:"results"`
}

type sparqlJSONTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang"`
	Datatype string `json:"datatype"`
}

func decodeSparqlJSON(body []byte) ([]map[string]rdf.Term, error) {
	var resp sparqlJSONResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, oxierr.Evaluation("decoding SPARQL JSON results: %v", err)
	}
	out := make([]map[string]rdf.Term, 0, len(resp.Results.Bindings))
	for _, row := range resp.Results.Bindings {
		r := make(map[string]rdf.Term, len(row))
		for k, jt := range row {
			r[k] = jt.toTerm()
		}
		out = append(out, r)
	}
	return out, nil
}

func (jt sparqlJSONTerm) toTerm() rdf.Term {
	switch jt.Type {
	case "uri":
		return rdf.NewNamedNode(jt.Value)
	case "bnode":
		return rdf.NewBlankNode(jt.Value)
	case "literal", "typed-literal":
		if jt.Lang != "" {
			return rdf.NewLiteralWithLanguage(jt.Value, jt.Lang)
		}
		if jt.Datatype != "" {
			return rdf.NewLiteralWithDatatype(jt.Value, rdf.NewNamedNode(jt.Datatype))
		}
		return rdf.NewLiteral(jt.Value)
	default:
		return rdf.NewLiteral(jt.Value)
	}
}
