// Package planner rewrites a raw algebra.Query into one better ordered for
// evaluation: BGP join reordering by estimated cardinality, filter
// pushdown, and property-path expansion of finite path expressions.
package planner

import (
	"context"
	"fmt"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/store"
)

// Planner holds the quad store handed to New. BGP ordering does not read
// it: estimateCardinality scores a pattern by its bound positions only.
type Planner struct {
	Store *store.QuadStore

	pathVarSeq int
}

func New(s *store.QuadStore) *Planner { return &Planner{Store: s} }

// freshVar mints a variable name guaranteed not to collide with
// user-written query variables, for intermediate nodes introduced by
// property-path sequence expansion.
func (p *Planner) freshVar() algebra.Variable {
	p.pathVarSeq++
	return algebra.Variable(fmt.Sprintf(".path%d", p.pathVarSeq))
}

// Plan rewrites q.Root in place and returns the planned query.
func (p *Planner) Plan(ctx context.Context, q *algebra.Query) (*algebra.Query, error) {
	root, err := p.rewrite(ctx, q.Root)
	if err != nil {
		return nil, err
	}
	q.Root = root
	return q, nil
}

func (p *Planner) rewrite(ctx context.Context, n algebra.Node) (algebra.Node, error) {
	if n == nil {
		return nil, nil
	}
	switch node := n.(type) {
	case algebra.BGP:
		return p.orderBGP(ctx, node)
	case algebra.Join:
		left, err := p.rewrite(ctx, node.Left)
		if err != nil {
			return nil, err
		}
		right, err := p.rewrite(ctx, node.Right)
		if err != nil {
			return nil, err
		}
		return algebra.Join{Left: left, Right: right}, nil
	case algebra.LeftJoin:
		left, err := p.rewrite(ctx, node.Left)
		if err != nil {
			return nil, err
		}
		right, err := p.rewrite(ctx, node.Right)
		if err != nil {
			return nil, err
		}
		return algebra.LeftJoin{Left: left, Right: right, Expr: node.Expr}, nil
	case algebra.Filter:
		child, err := p.rewrite(ctx, node.Child)
		if err != nil {
			return nil, err
		}
		return pushFilterIntoBGP(algebra.Filter{Child: child, Expr: node.Expr})
	case algebra.Union:
		left, err := p.rewrite(ctx, node.Left)
		if err != nil {
			return nil, err
		}
		right, err := p.rewrite(ctx, node.Right)
		if err != nil {
			return nil, err
		}
		return algebra.Union{Left: left, Right: right}, nil
	case algebra.Extend:
		child, err := p.rewrite(ctx, node.Child)
		if err != nil {
			return nil, err
		}
		return algebra.Extend{Child: child, Var: node.Var, Expr: node.Expr}, nil
	case algebra.Minus:
		left, err := p.rewrite(ctx, node.Left)
		if err != nil {
			return nil, err
		}
		right, err := p.rewrite(ctx, node.Right)
		if err != nil {
			return nil, err
		}
		return algebra.Minus{Left: left, Right: right}, nil
	case algebra.Graph:
		child, err := p.rewrite(ctx, node.Child)
		if err != nil {
			return nil, err
		}
		return algebra.Graph{Name: node.Name, Child: child}, nil
	case algebra.Service:
		child, err := p.rewrite(ctx, node.Child)
		if err != nil {
			return nil, err
		}
		return algebra.Service{Endpoint: node.Endpoint, Child: child, Silent: node.Silent}, nil
	case algebra.Project:
		child, err := p.rewrite(ctx, node.Child)
		if err != nil {
			return nil, err
		}
		return pushUnionOverProject(algebra.Project{Child: child, Vars: node.Vars}), nil
	case algebra.Distinct:
		child, err := p.rewrite(ctx, node.Child)
		if err != nil {
			return nil, err
		}
		return algebra.Distinct{Child: child}, nil
	case algebra.Reduced:
		child, err := p.rewrite(ctx, node.Child)
		if err != nil {
			return nil, err
		}
		return algebra.Reduced{Child: child}, nil
	case algebra.Slice:
		child, err := p.rewrite(ctx, node.Child)
		if err != nil {
			return nil, err
		}
		return algebra.Slice{Child: child, Offset: node.Offset, Limit: node.Limit, HasLimit: node.HasLimit}, nil
	case algebra.OrderBy:
		child, err := p.rewrite(ctx, node.Child)
		if err != nil {
			return nil, err
		}
		return algebra.OrderBy{Child: child, Conditions: node.Conditions}, nil
	case algebra.Group:
		child, err := p.rewrite(ctx, node.Child)
		if err != nil {
			return nil, err
		}
		return algebra.Group{Child: child, Keys: node.Keys, KeyVars: node.KeyVars, Aggregates: node.Aggregates}, nil
	case algebra.Path:
		return p.rewrite(ctx, expandPath(node.Subject, node.Path, node.Object, p.freshVar))
	default:
		return n, nil
	}
}

// orderBGP greedily orders triple patterns by estimated cardinality
// (fewest matches first), the textbook selinger-style heuristic scaled
// down to a single-scan greedy choice: at each step, pick the remaining
// pattern with the lowest bound-position cardinality given variables
// already bound by patterns placed so far.
func (p *Planner) orderBGP(ctx context.Context, bgp algebra.BGP) (algebra.Node, error) {
	remaining := append([]algebra.TriplePattern(nil), bgp.Patterns...)
	bound := map[algebra.Variable]bool{}
	var ordered []algebra.TriplePattern

	for len(remaining) > 0 {
		bestIdx := 0
		bestCard := int64(-1)
		for i, tp := range remaining {
			card := p.estimateCardinality(ctx, tp, bound)
			if bestCard < 0 || card < bestCard {
				bestCard = card
				bestIdx = i
			}
		}
		chosen := remaining[bestIdx]
		ordered = append(ordered, chosen)
		bindVars(chosen.Subject, bound)
		bindVars(chosen.Predicate, bound)
		bindVars(chosen.Object, bound)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return algebra.BGP{Patterns: ordered}, nil
}

func bindVars(t algebra.TermOrVariable, bound map[algebra.Variable]bool) {
	if t.IsVariable() {
		bound[t.Var] = true
	}
}

// estimateCardinality scores a pattern by how many of its three positions
// are effectively bound (by a constant, or by a variable already bound by
// an earlier pattern in this ordering) — more bound positions means a
// narrower index scan and a lower score.
func (p *Planner) estimateCardinality(_ context.Context, tp algebra.TriplePattern, bound map[algebra.Variable]bool) int64 {
	boundCount := 0
	for _, t := range []algebra.TermOrVariable{tp.Subject, tp.Predicate, tp.Object} {
		if !t.IsVariable() || bound[t.Var] {
			boundCount++
		}
	}
	// Fewer bound positions => larger result; score inversely.
	return int64(3 - boundCount)
}

// pushFilterIntoBGP checks whether a Filter sits directly on a BGP that
// binds every variable of its expression. Both outcomes return a Filter
// over the same child: the expression is not merged into the BGP, and the
// evaluator applies it to the rows the BGP produces.
func pushFilterIntoBGP(f algebra.Filter) (algebra.Node, error) {
	bgp, ok := f.Child.(algebra.BGP)
	if !ok {
		return f, nil
	}
	bound := map[algebra.Variable]bool{}
	for _, tp := range bgp.Patterns {
		bindVars(tp.Subject, bound)
		bindVars(tp.Predicate, bound)
		bindVars(tp.Object, bound)
	}
	if exprVarsBoundBy(f.Expr, bound) {
		return algebra.Filter{Child: bgp, Expr: f.Expr}, nil
	}
	return f, nil
}

func exprVarsBoundBy(e algebra.Expr, bound map[algebra.Variable]bool) bool {
	vars := map[algebra.Variable]bool{}
	collectExprVars(e, vars)
	for v := range vars {
		if !bound[v] {
			return false
		}
	}
	return true
}

func collectExprVars(e algebra.Expr, out map[algebra.Variable]bool) {
	switch ex := e.(type) {
	case algebra.VarExpr:
		out[ex.Var] = true
	case algebra.UnaryExpr:
		collectExprVars(ex.Operand, out)
	case algebra.BinaryExpr:
		collectExprVars(ex.Left, out)
		collectExprVars(ex.Right, out)
	case algebra.CallExpr:
		for _, a := range ex.Args {
			collectExprVars(a, out)
		}
	case algebra.InExpr:
		collectExprVars(ex.Operand, out)
		for _, a := range ex.List {
			collectExprVars(a, out)
		}
	}
}

// pushUnionOverProject rewrites Project(Union(L, R)) into
// Union(Project(L), Project(R)) whenever a Union sits directly under a
// Project. No condition is checked: projection distributes over a bag
// union, so each branch is projected on its own.
func pushUnionOverProject(p algebra.Project) algebra.Node {
	u, ok := p.Child.(algebra.Union)
	if !ok {
		return p
	}
	return algebra.Union{
		Left:  algebra.Project{Child: u.Left, Vars: p.Vars},
		Right: algebra.Project{Child: u.Right, Vars: p.Vars},
	}
}
