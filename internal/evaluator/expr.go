package evaluator

import (
	"fmt"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/oxierr"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// evalBoolean evaluates e's effective boolean value (EBV); any evaluation
// error is three-valued logic false, per SPARQL FILTER semantics — it
// drops the binding rather than failing the whole query.
func evalBoolean(ec *EvalContext, e algebra.Expr, b Binding) bool {
	v, err := evalExpr(ec, e, b)
	if err != nil {
		return false
	}
	return effectiveBooleanValue(v)
}

func effectiveBooleanValue(t rdf.Term) bool {
	lit, ok := t.(*rdf.Literal)
	if !ok || t == nil {
		return false
	}
	if lit.Datatype != nil && lit.Datatype.IRI == rdf.XSDBoolean.IRI {
		return lit.Value == "true" || lit.Value == "1"
	}
	if v, isNum := numericValue(lit); isNum {
		return v != 0
	}
	return lit.Value != ""
}

// evalExpr evaluates e against binding b. Errors surface
// oxierr.ErrEvaluation so callers implementing three-valued logic (Filter,
// LeftJoin's inline expr) can treat them as "unknown".
func evalExpr(ec *EvalContext, e algebra.Expr, b Binding) (rdf.Term, error) {
	switch ex := e.(type) {
	case nil:
		return nil, oxierr.Evaluation("nil expression")
	case algebra.ConstExpr:
		return ex.Term, nil
	case algebra.VarExpr:
		if v, ok := b[ex.Var]; ok {
			return v, nil
		}
		return nil, oxierr.Evaluation("unbound variable ?%s", ex.Var)
	case algebra.UnaryExpr:
		return evalUnary(ec, ex, b)
	case algebra.BinaryExpr:
		return evalBinary(ec, ex, b)
	case algebra.CallExpr:
		return evalCall(ec, ex, b)
	case algebra.ExistsExpr:
		return evalExists(ec, ex, b)
	case algebra.InExpr:
		return evalIn(ec, ex, b)
	default:
		return nil, oxierr.Evaluation("unhandled expression type %T", e)
	}
}

func evalUnary(ec *EvalContext, ex algebra.UnaryExpr, b Binding) (rdf.Term, error) {
	v, err := evalExpr(ec, ex.Operand, b)
	if err != nil {
		return nil, err
	}
	switch ex.Op {
	case "!":
		return rdf.NewBooleanLiteral(!effectiveBooleanValue(v)), nil
	case "-":
		lit, ok := v.(*rdf.Literal)
		if !ok {
			return nil, oxierr.Evaluation("unary - on non-literal")
		}
		n, ok := numericValue(lit)
		if !ok {
			return nil, oxierr.Evaluation("unary - on non-numeric literal")
		}
		return makeNumeric(-n, lit.Datatype), nil
	default:
		return nil, oxierr.Evaluation("unknown unary operator %q", ex.Op)
	}
}

func evalBinary(ec *EvalContext, ex algebra.BinaryExpr, b Binding) (rdf.Term, error) {
	switch ex.Op {
	case "&&":
		left, err := evalExpr(ec, ex.Left, b)
		if err == nil && !effectiveBooleanValue(left) {
			return rdf.NewBooleanLiteral(false), nil
		}
		right, rerr := evalExpr(ec, ex.Right, b)
		if err != nil || rerr != nil {
			return nil, oxierr.Evaluation("operand error in &&")
		}
		return rdf.NewBooleanLiteral(effectiveBooleanValue(left) && effectiveBooleanValue(right)), nil
	case "||":
		left, err := evalExpr(ec, ex.Left, b)
		if err == nil && effectiveBooleanValue(left) {
			return rdf.NewBooleanLiteral(true), nil
		}
		right, rerr := evalExpr(ec, ex.Right, b)
		if err != nil && rerr != nil {
			return nil, oxierr.Evaluation("operand error in ||")
		}
		return rdf.NewBooleanLiteral(rerr == nil && effectiveBooleanValue(right)), nil
	}

	left, err := evalExpr(ec, ex.Left, b)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(ec, ex.Right, b)
	if err != nil {
		return nil, err
	}

	switch ex.Op {
	case "=":
		return rdf.NewBooleanLiteral(compareTerms(left, right) == 0 && sameKind(left, right)), nil
	case "!=":
		return rdf.NewBooleanLiteral(!(compareTerms(left, right) == 0 && sameKind(left, right))), nil
	case "<":
		return rdf.NewBooleanLiteral(compareTerms(left, right) < 0), nil
	case ">":
		return rdf.NewBooleanLiteral(compareTerms(left, right) > 0), nil
	case "<=":
		return rdf.NewBooleanLiteral(compareTerms(left, right) <= 0), nil
	case ">=":
		return rdf.NewBooleanLiteral(compareTerms(left, right) >= 0), nil
	case "+", "-", "*", "/":
		return evalArithmetic(ex.Op, left, right)
	default:
		return nil, oxierr.Evaluation("unknown binary operator %q", ex.Op)
	}
}

func sameKind(a, b rdf.Term) bool {
	return fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b)
}

func evalArithmetic(op string, left, right rdf.Term) (rdf.Term, error) {
	ll, lok := left.(*rdf.Literal)
	rl, rok := right.(*rdf.Literal)
	if !lok || !rok {
		return nil, oxierr.Evaluation("arithmetic on non-literal operand")
	}
	lv, lnum := numericValue(ll)
	rv, rnum := numericValue(rl)
	if !lnum || !rnum {
		return nil, oxierr.Evaluation("arithmetic on non-numeric literal")
	}
	dt := promotedDatatype(ll, rl)
	switch op {
	case "+":
		return makeNumeric(lv+rv, dt), nil
	case "-":
		return makeNumeric(lv-rv, dt), nil
	case "*":
		return makeNumeric(lv*rv, dt), nil
	case "/":
		if rv == 0 {
			return nil, oxierr.Evaluation("division by zero")
		}
		return makeNumeric(lv/rv, rdf.XSDDecimal), nil
	default:
		return nil, oxierr.Evaluation("unknown arithmetic operator %q", op)
	}
}

func evalExists(ec *EvalContext, ex algebra.ExistsExpr, b Binding) (rdf.Term, error) {
	rows, err := drain(ec.Ctx, Compile(ec, ex.Pattern, b))
	if err != nil {
		return nil, err
	}
	found := len(rows) > 0
	if ex.Negate {
		found = !found
	}
	return rdf.NewBooleanLiteral(found), nil
}

func evalIn(ec *EvalContext, ex algebra.InExpr, b Binding) (rdf.Term, error) {
	v, err := evalExpr(ec, ex.Operand, b)
	if err != nil {
		return nil, err
	}
	found := false
	for _, item := range ex.List {
		iv, err := evalExpr(ec, item, b)
		if err != nil {
			continue
		}
		if compareTerms(v, iv) == 0 && sameKind(v, iv) {
			found = true
			break
		}
	}
	if ex.Negate {
		found = !found
	}
	return rdf.NewBooleanLiteral(found), nil
}
