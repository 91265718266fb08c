package sparqlparser

import (
	"fmt"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// parseConstraint parses a FILTER/HAVING argument: either a parenthesised
// expression or a builtin-call/EXISTS form.
func (p *Parser) parseConstraint() (algebra.Expr, error) {
	return p.parseExpression()
}

// Expression precedence, lowest to highest:
// Or -> And -> Equality/Relational -> Additive -> Multiplicative -> Unary -> Primary

func (p *Parser) parseExpression() (algebra.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (algebra.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atPunct("||") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = algebra.BinaryExpr{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (algebra.Expr, error) {
	left, err := p.parseNotIn()
	if err != nil {
		return nil, err
	}
	for p.atPunct("&&") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNotIn()
		if err != nil {
			return nil, err
		}
		left = algebra.BinaryExpr{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNotIn() (algebra.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	negate := false
	if p.atKeyword("NOT") {
		negate = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.atKeyword("IN") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		var list []algebra.Expr
		for !p.atPunct(")") {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			list = append(list, e)
			if p.atPunct(",") {
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return algebra.InExpr{Operand: left, List: list, Negate: negate}, nil
	}
	return left, nil
}

func (p *Parser) parseRelational() (algebra.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	ops := map[string]bool{"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true}
	if p.cur.kind == tokPunct && ops[p.cur.text] {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return algebra.BinaryExpr{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseAdditive() (algebra.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.atPunct("+") || p.atPunct("-") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = algebra.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (algebra.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atPunct("*") || p.atPunct("/") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = algebra.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (algebra.Expr, error) {
	switch {
	case p.atPunct("!"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return algebra.UnaryExpr{Op: "!", Operand: operand}, nil
	case p.atPunct("-"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return algebra.UnaryExpr{Op: "-", Operand: operand}, nil
	case p.atPunct("+"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseUnary()
	default:
		return p.parsePrimaryExpr()
	}
}

func (p *Parser) parsePrimaryExpr() (algebra.Expr, error) {
	switch {
	case p.atPunct("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil

	case p.cur.kind == tokVar:
		v := algebra.Variable(p.cur.text)
		return algebra.VarExpr{Var: v}, p.advance()

	case p.cur.kind == tokNumber, p.cur.kind == tokString, p.cur.kind == tokBlankNode:
		tv, err := p.parseVarOrTerm()
		if err != nil {
			return nil, err
		}
		return algebra.ConstExpr{Term: tv.Term}, nil

	case p.cur.kind == tokIRI, p.cur.kind == tokPrefixedName:
		tv, err := p.parseVarOrTerm()
		if err != nil {
			return nil, err
		}
		return algebra.ConstExpr{Term: tv.Term}, nil

	case p.atKeyword("TRUE"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return algebra.ConstExpr{Term: rdf.NewBooleanLiteral(true)}, nil

	case p.atKeyword("FALSE"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return algebra.ConstExpr{Term: rdf.NewBooleanLiteral(false)}, nil

	case p.atKeyword("NOT"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("EXISTS"); err != nil {
			return nil, err
		}
		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return algebra.ExistsExpr{Pattern: pattern, Negate: true}, nil

	case p.atKeyword("EXISTS"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return algebra.ExistsExpr{Pattern: pattern}, nil

	case p.atKeyword("IF"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(","); err != nil {
			return nil, err
		}
		then, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(","); err != nil {
			return nil, err
		}
		els, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return algebra.CallExpr{Name: "IF", Args: []algebra.Expr{cond, then, els}}, nil

	case p.cur.kind == tokBareName:
		return p.parseFunctionCall()

	case p.cur.kind == tokKeyword:
		return p.parseFunctionCall()

	default:
		return nil, fmt.Errorf("unexpected token %q in expression", p.cur.text)
	}
}

func (p *Parser) parseFunctionCall() (algebra.Expr, error) {
	name := p.cur.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []algebra.Expr
	for !p.atPunct(")") {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.atPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return algebra.CallExpr{Name: name, Args: args}, nil
}
