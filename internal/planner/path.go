package planner

import "github.com/aleksaelezovic/oxigo/internal/algebra"

// expandPath rewrites a property-path triple into plain algebra for
// sequence, alternative and inverse paths: these become Join/Union-of-BGP
// trees. Zero-or-one (`?`), `*`, `+` and negated property sets are not
// expanded; they stay a Path node for the evaluator's path iterator
// (BFS-with-visited-set fixpoint for `*` and `+`).
func expandPath(subj algebra.TermOrVariable, pe algebra.PathExpr, obj algebra.TermOrVariable, freshVar func() algebra.Variable) algebra.Node {
	switch pe.Op {
	case algebra.PathDirect:
		return algebra.BGP{Patterns: []algebra.TriplePattern{{Subject: subj, Predicate: algebra.Fixed(pe.Term), Object: obj}}}

	case algebra.PathInverse:
		return expandPath(obj, pe.Children[0], subj, freshVar)

	case algebra.PathSequence:
		mid := algebra.Var(string(freshVar()))
		left := expandPath(subj, pe.Children[0], mid, freshVar)
		right := expandPath(mid, pe.Children[1], obj, freshVar)
		return algebra.Join{Left: left, Right: right}

	case algebra.PathAlternative:
		left := expandPath(subj, pe.Children[0], obj, freshVar)
		right := expandPath(subj, pe.Children[1], obj, freshVar)
		return algebra.Union{Left: left, Right: right}

	case algebra.PathZeroOrOne, algebra.PathZeroOrMore, algebra.PathOneOrMore, algebra.PathNegatedSet:
		// These need the "zero steps means subject=object" and/or
		// unbounded-depth BFS semantics that plain relational algebra
		// can't express with fixed arity; the evaluator handles them
		// directly via its BFS-with-visited-set Path iterator.
		return algebra.Path{Subject: subj, Path: pe, Object: obj}

	default:
		return algebra.Path{Subject: subj, Path: pe, Object: obj}
	}
}
