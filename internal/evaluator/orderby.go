package evaluator

import (
	"sort"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

func compileOrderBy(ec *EvalContext, node algebra.OrderBy, parent Binding) BindingIterator {
	rows, err := drain(ec.Ctx, Compile(ec, node.Child, parent))
	if err != nil {
		return failIterator(err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, cond := range node.Conditions {
			vi, _ := evalExpr(ec, cond.Expr, rows[i])
			vj, _ := evalExpr(ec, cond.Expr, rows[j])
			cmp := compareTerms(vi, vj)
			if cmp == 0 {
				continue
			}
			if cond.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return newSliceIterator(rows)
}

// termRank orders unbound < blank node < IRI < literal, per SPARQL
// ORDER BY semantics.
func termRank(t rdf.Term) int {
	switch t.(type) {
	case nil:
		return 0
	case *rdf.BlankNode:
		return 1
	case *rdf.NamedNode:
		return 2
	case *rdf.Literal:
		return 3
	default:
		return 4
	}
}

// compareTerms implements SPARQL's ORDER BY comparison: unbound < blank <
// IRI < literal; numeric literals compare by value; everything else by
// codepoint order of its lexical/string form.
func compareTerms(a, b rdf.Term) int {
	ra, rb := termRank(a), termRank(b)
	if ra != rb {
		return ra - rb
	}
	if a == nil || b == nil {
		return 0
	}
	al, aok := a.(*rdf.Literal)
	bl, bok := b.(*rdf.Literal)
	if aok && bok {
		if av, aIsNum := numericValue(al); aIsNum {
			if bv, bIsNum := numericValue(bl); bIsNum {
				switch {
				case av < bv:
					return -1
				case av > bv:
					return 1
				default:
					return 0
				}
			}
		}
	}
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}
