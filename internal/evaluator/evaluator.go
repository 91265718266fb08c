package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/oxierr"
	"github.com/aleksaelezovic/oxigo/internal/planner"
	"github.com/aleksaelezovic/oxigo/internal/store"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// Result is the outcome of evaluating one algebra.Query, shaped according
// to its Form. Callers (pkg/server's result formatters, the CLI REPL)
// switch on Form to decide which fields are populated.
type Result struct {
	Form algebra.QueryForm

	// SELECT
	Vars []string
	Rows []Binding

	// ASK
	Ask bool

	// CONSTRUCT / DESCRIBE
	Quads []*rdf.Quad
}

// Evaluate plans and executes a parsed query against st, producing a
// Result shaped for the query's form.
func Evaluate(ctx context.Context, st *store.QuadStore, q *algebra.Query) (*Result, error) {
	planned, err := planner.New(st).Plan(ctx, q)
	if err != nil {
		return nil, err
	}

	ec := &EvalContext{Ctx: ctx, Store: st, NowLiteral: stableNow()}

	switch planned.Form {
	case algebra.FormAsk:
		rows, err := drain(ctx, Compile(ec, planned.Root, Binding{}))
		if err != nil {
			return nil, err
		}
		return &Result{Form: algebra.FormAsk, Ask: len(rows) > 0}, nil

	case algebra.FormSelect:
		rows, err := drain(ctx, Compile(ec, planned.Root, Binding{}))
		if err != nil {
			return nil, err
		}
		return &Result{Form: algebra.FormSelect, Vars: selectVars(planned.Root, rows), Rows: rows}, nil

	case algebra.FormConstruct:
		rows, err := drain(ctx, Compile(ec, planned.Root, Binding{}))
		if err != nil {
			return nil, err
		}
		quads := constructQuads(planned.Template, rows)
		return &Result{Form: algebra.FormConstruct, Quads: quads}, nil

	case algebra.FormDescribe:
		quads, err := describeQuads(ec, planned)
		if err != nil {
			return nil, err
		}
		return &Result{Form: algebra.FormDescribe, Quads: quads}, nil

	default:
		return nil, oxierr.Evaluation("unknown query form %v", planned.Form)
	}
}

// stableNow freezes NOW() to a single instant for the whole query
// evaluation, per SPARQL 1.1's requirement that repeated NOW() calls
// within one query return the same value. Callers needing wall-clock time
// should stamp it at request entry and pass it through a context value;
// this evaluator has no ambient clock dependency otherwise.
func stableNow() func() string {
	var frozen string
	return func() string {
		if frozen == "" {
			frozen = rdf.NewDateTimeLiteral(time.Now().UTC()).Value
		}
		return frozen
	}
}

// selectVars derives the SELECT column list: the outermost Project's Vars
// if present, else every variable name seen across the result rows
// (SELECT * with no enclosing Project, e.g. a bare Distinct/Slice/OrderBy
// chain around a Project-free root).
func selectVars(n algebra.Node, rows []Binding) []string {
	if vars, ok := findProjectVars(n); ok {
		out := make([]string, len(vars))
		for i, v := range vars {
			out[i] = string(v)
		}
		return out
	}
	seen := map[string]bool{}
	var out []string
	for _, row := range rows {
		for v := range row {
			if !seen[string(v)] {
				seen[string(v)] = true
				out = append(out, string(v))
			}
		}
	}
	return out
}

func findProjectVars(n algebra.Node) ([]algebra.Variable, bool) {
	switch node := n.(type) {
	case algebra.Project:
		return node.Vars, true
	case algebra.Distinct:
		return findProjectVars(node.Child)
	case algebra.Reduced:
		return findProjectVars(node.Child)
	case algebra.Slice:
		return findProjectVars(node.Child)
	case algebra.OrderBy:
		return findProjectVars(node.Child)
	default:
		return nil, false
	}
}

// constructQuads instantiates template against every solution in rows,
// remapping template blank nodes to fresh ones per solution (so multiple
// occurrences of the same blank node label within one template stay
// linked, but distinct solutions don't collide), and dropping any
// pattern whose template references an unbound variable.
func constructQuads(template []algebra.TriplePattern, rows []Binding) []*rdf.Quad {
	seen := map[string]bool{}
	var out []*rdf.Quad
	for i, row := range rows {
		bnodeMap := map[string]*rdf.BlankNode{}
		for _, tp := range template {
			s, ok1 := instantiateTemplateTerm(tp.Subject, row, bnodeMap, i)
			p, ok2 := instantiateTemplateTerm(tp.Predicate, row, bnodeMap, i)
			o, ok3 := instantiateTemplateTerm(tp.Object, row, bnodeMap, i)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			q := rdf.NewQuad(s, p, o, rdf.NewDefaultGraph())
			k := q.String()
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, q)
		}
	}
	return out
}

func instantiateTemplateTerm(t algebra.TermOrVariable, row Binding, bnodeMap map[string]*rdf.BlankNode, rowIdx int) (rdf.Term, bool) {
	if t.IsVariable() {
		v, ok := row[t.Var]
		return v, ok
	}
	if bn, ok := t.Term.(*rdf.BlankNode); ok {
		fresh, ok := bnodeMap[bn.ID]
		if !ok {
			fresh = rdf.NewBlankNode(fmt.Sprintf("%s-%d", bn.ID, rowIdx))
			bnodeMap[bn.ID] = fresh
		}
		return fresh, true
	}
	return t.Term, true
}

// describeQuads resolves every DESCRIBE target (directly named, or bound
// across the WHERE clause's solutions) and returns all quads having that
// term as subject — a simple concise-bounded-description stand-in, since
// SPARQL leaves DESCRIBE's exact output shape implementation-defined.
func describeQuads(ec *EvalContext, q *algebra.Query) ([]*rdf.Quad, error) {
	targets := map[string]rdf.Term{}

	addTarget := func(t rdf.Term) {
		if t != nil {
			targets[t.String()] = t
		}
	}

	for _, d := range q.Describe {
		if !d.IsVariable() {
			addTarget(d.Term)
		}
	}

	if q.Root != nil {
		rows, err := drain(ec.Ctx, Compile(ec, q.Root, Binding{}))
		if err != nil {
			return nil, err
		}
		for _, d := range q.Describe {
			if d.IsVariable() {
				for _, row := range rows {
					addTarget(row[d.Var])
				}
			}
		}
		if len(q.Describe) == 0 {
			for _, row := range rows {
				for _, v := range row {
					addTarget(v)
				}
			}
		}
	}

	var out []*rdf.Quad
	for _, term := range targets {
		err := ec.Store.Match(ec.Ctx, store.Pattern{Subject: term}, func(quad *rdf.Quad) error {
			out = append(out, quad)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
