package evaluator

import (
	"fmt"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/store"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// Compile turns a planned algebra.Node into a BindingIterator, seeded
// with parent (the single incoming binding from an enclosing operator, or
// an empty binding at the root).
func Compile(ec *EvalContext, n algebra.Node, parent Binding) BindingIterator {
	switch node := n.(type) {
	case algebra.BGP:
		return compileBGP(ec, node, parent)
	case algebra.Join:
		return compileJoin(ec, node, parent)
	case algebra.LeftJoin:
		return compileLeftJoin(ec, node, parent)
	case algebra.Filter:
		return compileFilter(ec, node, parent)
	case algebra.Union:
		return compileUnion(ec, node, parent)
	case algebra.Extend:
		return compileExtend(ec, node, parent)
	case algebra.Minus:
		return compileMinus(ec, node, parent)
	case algebra.Graph:
		return compileGraph(ec, node, parent)
	case algebra.Service:
		return compileService(ec, node, parent)
	case algebra.Values:
		return compileValues(ec, node, parent)
	case algebra.MultiValues:
		return compileMultiValues(ec, node, parent)
	case algebra.Project:
		return compileProject(ec, node, parent)
	case algebra.Distinct:
		return compileDistinct(ec, node, parent)
	case algebra.Reduced:
		return compileReduced(ec, node, parent)
	case algebra.Slice:
		return compileSlice(ec, node, parent)
	case algebra.OrderBy:
		return compileOrderBy(ec, node, parent)
	case algebra.Group:
		return compileGroup(ec, node, parent)
	case algebra.Path:
		return compilePath(ec, node, parent)
	case nil:
		return newSliceIterator([]Binding{parent})
	default:
		return failIterator(fmt.Errorf("evaluator: unhandled algebra node %T", n))
	}
}

// --- BGP ---

type bgpIterator struct {
	ec       *EvalContext
	patterns []algebra.TriplePattern
	base     Binding
	rows     []Binding
	pos      int
	err      error
}

func compileBGP(ec *EvalContext, node algebra.BGP, parent Binding) BindingIterator {
	it := &bgpIterator{ec: ec, patterns: node.Patterns, base: parent}
	it.rows, it.err = runBGP(ec, node.Patterns, parent)
	it.pos = -1
	return it
}

// runBGP executes patterns left to right (already planner-ordered by
// cardinality), threading bindings from one pattern into the next.
func runBGP(ec *EvalContext, patterns []algebra.TriplePattern, base Binding) ([]Binding, error) {
	current := []Binding{base}
	for _, tp := range patterns {
		var next []Binding
		for _, b := range current {
			pattern, ok := instantiatePattern(tp, b)
			if !ok {
				continue
			}
			err := ec.Store.Match(ec.Ctx, pattern, func(q *rdf.Quad) error {
				row := b.Clone()
				if !bindTerm(row, tp.Subject, q.Subject) {
					return nil
				}
				if !bindTerm(row, tp.Predicate, q.Predicate) {
					return nil
				}
				if !bindTerm(row, tp.Object, q.Object) {
					return nil
				}
				next = append(next, row)
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
		current = next
	}
	return current, nil
}

func instantiatePattern(tp algebra.TriplePattern, b Binding) (store.Pattern, bool) {
	var p store.Pattern
	var ok bool
	if p.Subject, ok = resolveTerm(tp.Subject, b); !ok {
		return p, false
	}
	if p.Predicate, ok = resolveTerm(tp.Predicate, b); !ok {
		return p, false
	}
	if p.Object, ok = resolveTerm(tp.Object, b); !ok {
		return p, false
	}
	return p, true
}

// resolveTerm turns a TermOrVariable into a pattern term; if it is a
// variable already bound in b, that binding's term becomes the pattern's
// constraint. Returns ok=false only on an internal encoding failure.
func resolveTerm(t algebra.TermOrVariable, b Binding) (rdf.Term, bool) {
	if !t.IsVariable() {
		return t.Term, true
	}
	if bound, ok := b[t.Var]; ok {
		return bound, true
	}
	return nil, true // unbound variable => nil => wildcard
}

// bindTerm extends row with t.Var = value, checking compatibility with any
// existing binding for that variable (re-occurring variables within one
// triple pattern, e.g. ?x :knows ?x).
func bindTerm(row Binding, t algebra.TermOrVariable, value rdf.Term) bool {
	if !t.IsVariable() {
		return true
	}
	if existing, ok := row[t.Var]; ok {
		return termEquals(existing, value)
	}
	row[t.Var] = value
	return true
}

func (it *bgpIterator) Next() bool {
	it.pos++
	return it.err == nil && it.pos < len(it.rows)
}
func (it *bgpIterator) Binding() Binding { return it.rows[it.pos] }
func (it *bgpIterator) Err() error       { return it.err }
func (it *bgpIterator) Close()           {}

// --- Join ---

func compileJoin(ec *EvalContext, node algebra.Join, parent Binding) BindingIterator {
	leftRows, err := drain(ec.Ctx, Compile(ec, node.Left, parent))
	if err != nil {
		return failIterator(err)
	}
	var out []Binding
	for _, lb := range leftRows {
		rightRows, err := drain(ec.Ctx, Compile(ec, node.Right, lb))
		if err != nil {
			return failIterator(err)
		}
		for _, rb := range rightRows {
			if merged, ok := lb.Merge(rb); ok {
				out = append(out, merged)
			}
		}
	}
	return newSliceIterator(out)
}

// --- LeftJoin (OPTIONAL) ---

func compileLeftJoin(ec *EvalContext, node algebra.LeftJoin, parent Binding) BindingIterator {
	leftRows, err := drain(ec.Ctx, Compile(ec, node.Left, parent))
	if err != nil {
		return failIterator(err)
	}
	var out []Binding
	for _, lb := range leftRows {
		rightRows, err := drain(ec.Ctx, Compile(ec, node.Right, lb))
		if err != nil {
			return failIterator(err)
		}
		matched := false
		for _, rb := range rightRows {
			merged, ok := lb.Merge(rb)
			if !ok {
				continue
			}
			if node.Expr != nil && !evalBoolean(ec, node.Expr, merged) {
				continue
			}
			out = append(out, merged)
			matched = true
		}
		if !matched {
			out = append(out, lb)
		}
	}
	return newSliceIterator(out)
}

// --- Filter ---

func compileFilter(ec *EvalContext, node algebra.Filter, parent Binding) BindingIterator {
	return &filterIterator{ec: ec, expr: node.Expr, child: Compile(ec, node.Child, parent)}
}

type filterIterator struct {
	ec    *EvalContext
	expr  algebra.Expr
	child BindingIterator
	cur   Binding
}

func (f *filterIterator) Next() bool {
	for f.child.Next() {
		b := f.child.Binding()
		if evalBoolean(f.ec, f.expr, b) {
			f.cur = b
			return true
		}
	}
	return false
}
func (f *filterIterator) Binding() Binding { return f.cur }
func (f *filterIterator) Err() error       { return f.child.Err() }
func (f *filterIterator) Close()           { f.child.Close() }

// --- Union ---

func compileUnion(ec *EvalContext, node algebra.Union, parent Binding) BindingIterator {
	left, err := drain(ec.Ctx, Compile(ec, node.Left, parent))
	if err != nil {
		return failIterator(err)
	}
	right, err := drain(ec.Ctx, Compile(ec, node.Right, parent))
	if err != nil {
		return failIterator(err)
	}
	return newSliceIterator(append(left, right...))
}

// --- Extend (BIND) ---

func compileExtend(ec *EvalContext, node algebra.Extend, parent Binding) BindingIterator {
	return &extendIterator{ec: ec, node: node, child: Compile(ec, node.Child, parent)}
}

type extendIterator struct {
	ec    *EvalContext
	node  algebra.Extend
	child BindingIterator
	cur   Binding
}

func (e *extendIterator) Next() bool {
	if !e.child.Next() {
		return false
	}
	b := e.child.Binding().Clone()
	if v, err := evalExpr(e.ec, e.node.Expr, b); err == nil {
		b[e.node.Var] = v
	}
	e.cur = b
	return true
}
func (e *extendIterator) Binding() Binding { return e.cur }
func (e *extendIterator) Err() error       { return e.child.Err() }
func (e *extendIterator) Close()           { e.child.Close() }

// --- Minus ---

func compileMinus(ec *EvalContext, node algebra.Minus, parent Binding) BindingIterator {
	left, err := drain(ec.Ctx, Compile(ec, node.Left, parent))
	if err != nil {
		return failIterator(err)
	}
	right, err := drain(ec.Ctx, Compile(ec, node.Right, parent))
	if err != nil {
		return failIterator(err)
	}
	var out []Binding
	for _, lb := range left {
		excluded := false
		for _, rb := range right {
			if shareVariable(lb, rb) && lb.Compatible(rb) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, lb)
		}
	}
	return newSliceIterator(out)
}

func shareVariable(a, b Binding) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// --- Graph ---

func compileGraph(ec *EvalContext, node algebra.Graph, parent Binding) BindingIterator {
	if !node.Name.IsVariable() {
		return Compile(ec, node.Child, parent)
	}
	graphs, err := ec.Store.Graphs(ec.Ctx)
	if err != nil {
		return failIterator(err)
	}
	var out []Binding
	for _, g := range graphs {
		b := parent.Clone()
		b[node.Name.Var] = g
		rows, err := drain(ec.Ctx, Compile(ec, node.Child, b))
		if err != nil {
			return failIterator(err)
		}
		out = append(out, rows...)
	}
	return newSliceIterator(out)
}

// --- Service ---

func compileService(ec *EvalContext, node algebra.Service, parent Binding) BindingIterator {
	rows, err := evalService(ec, node, parent)
	if err != nil {
		if node.Silent {
			return newSliceIterator([]Binding{parent})
		}
		return failIterator(err)
	}
	return newSliceIterator(rows)
}

// --- Values ---

func compileValues(ec *EvalContext, node algebra.Values, parent Binding) BindingIterator {
	var out []Binding
	for _, row := range node.Rows {
		b := parent.Clone()
		ok := true
		for k, v := range row {
			if existing, has := b[k]; has && !termEquals(existing, v) {
				ok = false
				break
			}
			b[k] = v
		}
		if ok {
			out = append(out, b)
		}
	}
	return newSliceIterator(out)
}

func compileMultiValues(ec *EvalContext, node algebra.MultiValues, parent Binding) BindingIterator {
	var out []Binding
	for _, row := range node.Rows {
		b := parent.Clone()
		ok := true
		for i, v := range row {
			if v == nil {
				continue
			}
			name := node.Vars[i]
			if existing, has := b[name]; has && !termEquals(existing, v) {
				ok = false
				break
			}
			b[name] = v
		}
		if ok {
			out = append(out, b)
		}
	}
	return newSliceIterator(out)
}

// --- Project ---

func compileProject(ec *EvalContext, node algebra.Project, parent Binding) BindingIterator {
	child := Compile(ec, node.Child, parent)
	return &projectIterator{vars: node.Vars, child: child}
}

type projectIterator struct {
	vars  []algebra.Variable
	child BindingIterator
	cur   Binding
}

func (p *projectIterator) Next() bool {
	if !p.child.Next() {
		return false
	}
	src := p.child.Binding()
	out := make(Binding, len(p.vars))
	for _, v := range p.vars {
		if t, ok := src[v]; ok {
			out[v] = t
		}
	}
	p.cur = out
	return true
}
func (p *projectIterator) Binding() Binding { return p.cur }
func (p *projectIterator) Err() error       { return p.child.Err() }
func (p *projectIterator) Close()           { p.child.Close() }

// --- Distinct / Reduced ---

func compileDistinct(ec *EvalContext, node algebra.Distinct, parent Binding) BindingIterator {
	rows, err := drain(ec.Ctx, Compile(ec, node.Child, parent))
	if err != nil {
		return failIterator(err)
	}
	seen := make(map[string]bool, len(rows))
	var out []Binding
	for _, b := range rows {
		k := b.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, b)
	}
	return newSliceIterator(out)
}

// reducedWindow bounds the best-effort REDUCED dedup window so it stays
// O(1) memory instead of DISTINCT's full hash set.
const reducedWindow = 64

func compileReduced(ec *EvalContext, node algebra.Reduced, parent Binding) BindingIterator {
	rows, err := drain(ec.Ctx, Compile(ec, node.Child, parent))
	if err != nil {
		return failIterator(err)
	}
	var out []Binding
	var window []string
	for _, b := range rows {
		k := b.key()
		dup := false
		for _, w := range window {
			if w == k {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out = append(out, b)
		window = append(window, k)
		if len(window) > reducedWindow {
			window = window[1:]
		}
	}
	return newSliceIterator(out)
}

// --- Slice ---

func compileSlice(ec *EvalContext, node algebra.Slice, parent Binding) BindingIterator {
	child := Compile(ec, node.Child, parent)
	return &sliceOpIterator{node: node, child: child, skipped: 0, yielded: 0}
}

type sliceOpIterator struct {
	node    algebra.Slice
	child   BindingIterator
	skipped int64
	yielded int64
	cur     Binding
}

func (s *sliceOpIterator) Next() bool {
	for s.skipped < s.node.Offset {
		if !s.child.Next() {
			return false
		}
		s.skipped++
	}
	if s.node.HasLimit && s.yielded >= s.node.Limit {
		return false
	}
	if !s.child.Next() {
		return false
	}
	s.cur = s.child.Binding()
	s.yielded++
	return true
}
func (s *sliceOpIterator) Binding() Binding { return s.cur }
func (s *sliceOpIterator) Err() error       { return s.child.Err() }
func (s *sliceOpIterator) Close()           { s.child.Close() }
