package evaluator

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/oxierr"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// compileGroup buckets the child's bindings by node.Keys (evaluated per
// row), then computes one output row per bucket: the key bindings plus
// each requested aggregate. A query with no GROUP BY keys and at least
// one aggregate still groups everything into a single implicit bucket.
func compileGroup(ec *EvalContext, node algebra.Group, parent Binding) BindingIterator {
	rows, err := drain(ec.Ctx, Compile(ec, node.Child, parent))
	if err != nil {
		return failIterator(err)
	}

	type bucket struct {
		key  Binding
		rows []Binding
	}
	order := []string{}
	buckets := map[string]*bucket{}

	for _, row := range rows {
		key := Binding{}
		for i, keyExpr := range node.Keys {
			v, err := evalExpr(ec, keyExpr, row)
			if err != nil {
				v = nil
			}
			if i < len(node.KeyVars) && node.KeyVars[i] != "" {
				key[node.KeyVars[i]] = v
			}
		}
		k := key.key()
		bk, ok := buckets[k]
		if !ok {
			bk = &bucket{key: key}
			buckets[k] = bk
			order = append(order, k)
		}
		bk.rows = append(bk.rows, row)
	}

	if len(buckets) == 0 && len(node.Keys) == 0 {
		// No input rows and no grouping keys: aggregates still produce
		// one row (e.g. COUNT(*) over an empty pattern is 0).
		order = append(order, "")
		buckets[""] = &bucket{key: Binding{}}
	}

	out := make([]Binding, 0, len(order))
	for _, k := range order {
		bk := buckets[k]
		result := bk.key.Clone()
		for _, agg := range node.Aggregates {
			v, err := computeAggregate(ec, agg, bk.rows)
			if err == nil {
				result[agg.Var] = v
			}
		}
		out = append(out, result)
	}
	return newSliceIterator(out)
}

func computeAggregate(ec *EvalContext, agg algebra.Aggregate, rows []Binding) (rdf.Term, error) {
	values := make([]rdf.Term, 0, len(rows))
	if agg.Func == "COUNT" && agg.Expr == nil {
		values = make([]rdf.Term, len(rows))
	} else {
		for _, row := range rows {
			v, err := evalExpr(ec, agg.Expr, row)
			if err != nil {
				continue
			}
			values = append(values, v)
		}
	}
	if agg.Distinct {
		values = dedupeTerms(values)
	}

	switch agg.Func {
	case "COUNT":
		return rdf.NewIntegerLiteral(int64(len(values))), nil
	case "SUM":
		return sumLiteral(floats.Sum(numericValues(values))), nil
	case "AVG":
		nums := numericValues(values)
		if len(nums) == 0 {
			return rdf.NewIntegerLiteral(0), nil
		}
		return rdf.NewDecimalLiteral(stat.Mean(nums, nil)), nil
	case "MIN":
		return extremum(values, -1), nil
	case "MAX":
		return extremum(values, 1), nil
	case "SAMPLE":
		if len(values) == 0 {
			return nil, oxierr.Evaluation("SAMPLE over empty group")
		}
		return values[0], nil
	case "GROUP_CONCAT":
		sep := agg.Separator
		if sep == "" {
			sep = " "
		}
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, termLexical(v))
		}
		return rdf.NewLiteral(strings.Join(parts, sep)), nil
	default:
		return nil, oxierr.Evaluation("unknown aggregate function %s", agg.Func)
	}
}

func extremum(values []rdf.Term, want int) rdf.Term {
	var best rdf.Term
	for _, v := range values {
		if best == nil {
			best = v
			continue
		}
		if c := compareTerms(v, best); (want < 0 && c < 0) || (want > 0 && c > 0) {
			best = v
		}
	}
	return best
}

// numericValues extracts the numeric value of every literal in values,
// silently dropping terms that aren't numeric literals (non-numeric
// values are excluded from SUM/AVG per SPARQL's type-error-per-term
// handling rather than failing the whole aggregate).
func numericValues(values []rdf.Term) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if lit, ok := v.(*rdf.Literal); ok {
			if n, ok := numericValue(lit); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

func dedupeTerms(values []rdf.Term) []rdf.Term {
	seen := map[string]bool{}
	out := make([]rdf.Term, 0, len(values))
	for _, v := range values {
		k := termLexical(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return compareTerms(out[i], out[j]) < 0 })
	return out
}

// sumLiteral renders a SUM() accumulator as an integer literal when the
// result has no fractional part, else as a decimal.
func sumLiteral(sum float64) *rdf.Literal {
	if sum == float64(int64(sum)) {
		return rdf.NewIntegerLiteral(int64(sum))
	}
	return rdf.NewDecimalLiteral(sum)
}
