package evaluator

import (
	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/store"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// pathIterator evaluates algebra.Path nodes the planner left unexpanded
// (*, +, ?, negated property sets) by BFS over the quad store with a
// visited-node set per source, rather than fixed-arity relational algebra.
type pathIterator struct {
	rows []Binding
	pos  int
}

func (p *pathIterator) Next() bool       { p.pos++; return p.pos < len(p.rows) }
func (p *pathIterator) Binding() Binding { return p.rows[p.pos] }
func (p *pathIterator) Err() error       { return nil }
func (p *pathIterator) Close()           {}

func compilePath(ec *EvalContext, node algebra.Path, parent Binding) BindingIterator {
	subjTerm, subjVar := resolveOrVar(node.Subject, parent)
	objTerm, objVar := resolveOrVar(node.Object, parent)

	var sources []rdf.Term
	if subjTerm != nil {
		sources = []rdf.Term{subjTerm}
	} else {
		all, err := distinctTerms(ec, store.Pattern{})
		if err != nil {
			return failIterator(err)
		}
		sources = all
	}

	var out []Binding
	for _, s := range sources {
		reached, err := evalPathFrom(ec, s, node.Path)
		if err != nil {
			return failIterator(err)
		}
		for _, o := range reached {
			if objTerm != nil && !objTerm.Equals(o) {
				continue
			}
			row := parent.Clone()
			if subjVar != "" {
				if existing, ok := row[subjVar]; ok && !existing.Equals(s) {
					continue
				}
				row[subjVar] = s
			}
			if objVar != "" {
				if existing, ok := row[objVar]; ok && !existing.Equals(o) {
					continue
				}
				row[objVar] = o
			}
			out = append(out, row)
		}
	}
	return &pathIterator{rows: out, pos: -1}
}

func resolveOrVar(t algebra.TermOrVariable, parent Binding) (rdf.Term, algebra.Variable) {
	if !t.IsVariable() {
		return t.Term, ""
	}
	if v, ok := parent[t.Var]; ok {
		return v, ""
	}
	return nil, t.Var
}

// distinctTerms enumerates every distinct subject currently present in the
// store, used when a path's source position is an unbound variable. This
// is necessarily a full scan; callers should avoid unbound-both-ends path
// queries over large stores without a LIMIT/FILTER to narrow them.
func distinctTerms(ec *EvalContext, _ store.Pattern) ([]rdf.Term, error) {
	seen := map[string]bool{}
	var out []rdf.Term
	err := ec.Store.Match(ec.Ctx, store.Pattern{}, func(q *rdf.Quad) error {
		k := q.Subject.String()
		if !seen[k] {
			seen[k] = true
			out = append(out, q.Subject)
		}
		return nil
	})
	return out, err
}

// evalPathFrom returns the nodes reachable from src via pe. For ?, * and +
// the result is a distinct set (the unbounded operators use a
// BFS-with-visited-set fixpoint); any other operator is plain one-step
// matching and returns one entry per matching step, duplicates included.
func evalPathFrom(ec *EvalContext, src rdf.Term, pe algebra.PathExpr) ([]rdf.Term, error) {
	switch pe.Op {
	case algebra.PathZeroOrMore:
		return bfsClosure(ec, src, pe.Children[0], true)
	case algebra.PathOneOrMore:
		return bfsClosure(ec, src, pe.Children[0], false)
	case algebra.PathZeroOrOne:
		reached, err := stepSet(ec, src, pe.Children[0])
		if err != nil {
			return nil, err
		}
		seen := map[string]bool{src.String(): true}
		out := []rdf.Term{src}
		for _, n := range reached {
			if k := n.String(); !seen[k] {
				seen[k] = true
				out = append(out, n)
			}
		}
		return out, nil
	default:
		return stepSet(ec, src, pe)
	}
}

// bfsClosure computes the set of nodes reachable from src by zero-or-more
// (includeZero=true) or one-or-more applications of step, using a
// visited set to guarantee termination over cyclic graphs.
func bfsClosure(ec *EvalContext, src rdf.Term, step algebra.PathExpr, includeZero bool) ([]rdf.Term, error) {
	visited := map[string]rdf.Term{}
	if includeZero {
		visited[src.String()] = src
	}
	frontier := []rdf.Term{src}
	firstRound := true
	for len(frontier) > 0 {
		var next []rdf.Term
		for _, n := range frontier {
			nexts, err := stepSet(ec, n, step)
			if err != nil {
				return nil, err
			}
			for _, m := range nexts {
				k := m.String()
				if _, ok := visited[k]; !ok {
					visited[k] = m
					next = append(next, m)
				}
			}
		}
		if firstRound && !includeZero {
			for _, n := range next {
				visited[n.String()] = n
			}
		}
		firstRound = false
		frontier = next
	}
	out := make([]rdf.Term, 0, len(visited))
	for _, v := range visited {
		out = append(out, v)
	}
	return out, nil
}

// stepSet returns the nodes reachable from src by exactly one application
// of pe (which may itself be a sequence/alternative/inverse/negated-set
// composite, but not an unbounded repetition operator).
func stepSet(ec *EvalContext, src rdf.Term, pe algebra.PathExpr) ([]rdf.Term, error) {
	switch pe.Op {
	case algebra.PathDirect:
		var out []rdf.Term
		err := ec.Store.Match(ec.Ctx, store.Pattern{Subject: src, Predicate: pe.Term}, func(q *rdf.Quad) error {
			out = append(out, q.Object)
			return nil
		})
		return out, err
	case algebra.PathInverse:
		return stepSetInverse(ec, src, pe.Children[0])
	case algebra.PathSequence:
		mids, err := stepSet(ec, src, pe.Children[0])
		if err != nil {
			return nil, err
		}
		var out []rdf.Term
		for _, m := range mids {
			rest, err := stepSet(ec, m, pe.Children[1])
			if err != nil {
				return nil, err
			}
			out = append(out, rest...)
		}
		return out, nil
	case algebra.PathAlternative:
		left, err := stepSet(ec, src, pe.Children[0])
		if err != nil {
			return nil, err
		}
		right, err := stepSet(ec, src, pe.Children[1])
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	case algebra.PathZeroOrOne, algebra.PathZeroOrMore, algebra.PathOneOrMore:
		return evalPathFrom(ec, src, pe)
	case algebra.PathNegatedSet:
		return stepNegated(ec, src, pe.Children[0])
	default:
		return nil, nil
	}
}

// stepSetInverse evaluates one step of ^pe: nodes n such that src is
// reachable from n by one step of pe.
func stepSetInverse(ec *EvalContext, src rdf.Term, pe algebra.PathExpr) ([]rdf.Term, error) {
	if pe.Op == algebra.PathDirect {
		var out []rdf.Term
		err := ec.Store.Match(ec.Ctx, store.Pattern{Predicate: pe.Term, Object: src}, func(q *rdf.Quad) error {
			out = append(out, q.Subject)
			return nil
		})
		return out, err
	}
	// General inverse of a composite: scan every quad and test membership
	// the slow way, since composite inverses are rare in practice.
	var out []rdf.Term
	err := ec.Store.Match(ec.Ctx, store.Pattern{}, func(q *rdf.Quad) error {
		fwd, ferr := stepSet(ec, q.Subject, pe)
		if ferr != nil {
			return ferr
		}
		for _, f := range fwd {
			if f.Equals(src) {
				out = append(out, q.Subject)
				break
			}
		}
		return nil
	})
	return out, err
}

// stepNegated matches any predicate NOT in the (possibly alternative-of-
// direct/inverse) set described by pe.
func stepNegated(ec *EvalContext, src rdf.Term, pe algebra.PathExpr) ([]rdf.Term, error) {
	excluded := map[string]bool{}
	collectNegatedTerms(pe, excluded)

	var out []rdf.Term
	err := ec.Store.Match(ec.Ctx, store.Pattern{Subject: src}, func(q *rdf.Quad) error {
		if !excluded[q.Predicate.String()] {
			out = append(out, q.Object)
		}
		return nil
	})
	return out, err
}

func collectNegatedTerms(pe algebra.PathExpr, out map[string]bool) {
	switch pe.Op {
	case algebra.PathDirect:
		if pe.Term != nil {
			out[pe.Term.String()] = true
		}
	case algebra.PathAlternative:
		for _, c := range pe.Children {
			collectNegatedTerms(c, out)
		}
	case algebra.PathInverse:
		for _, c := range pe.Children {
			collectNegatedTerms(c, out)
		}
	}
}
