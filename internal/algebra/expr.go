package algebra

import "github.com/aleksaelezovic/oxigo/pkg/rdf"

// Expr is a SPARQL expression tree node, evaluated per-binding by
// internal/evaluator.
type Expr interface {
	expr()
}

// ConstExpr is a constant rdf.Term (IRI, literal, or blank node used as a
// constructor argument).
type ConstExpr struct{ Term rdf.Term }

// VarExpr references a bound (or unbound) variable.
type VarExpr struct{ Var Variable }

// UnaryExpr applies Op ("!" or "-") to Operand. The parser drops a unary
// "+", and NOT EXISTS is an ExistsExpr with Negate set instead.
type UnaryExpr struct {
	Op      string
	Operand Expr
}

// BinaryExpr applies Op to Left/Right: arithmetic, comparison, &&, ||.
type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

// CallExpr is a named builtin-function invocation: STR, LANG, SUBSTR,
// REPLACE, CONCAT, hash functions, datetime functions, IRI/STRDT/STRLANG/
// BNODE constructors, COALESCE, IF, etc.
type CallExpr struct {
	Name string
	Args []Expr
}

// ExistsExpr evaluates Pattern as a nested sub-plan against the current
// binding; Negate implements NOT EXISTS.
type ExistsExpr struct {
	Pattern Node
	Negate  bool
}

// InExpr implements `expr IN (list...)` / `expr NOT IN (list...)`.
type InExpr struct {
	Operand Expr
	List    []Expr
	Negate  bool
}

func (ConstExpr) expr()  {}
func (VarExpr) expr()    {}
func (UnaryExpr) expr()  {}
func (BinaryExpr) expr() {}
func (CallExpr) expr()   {}
func (ExistsExpr) expr() {}
func (InExpr) expr()     {}
