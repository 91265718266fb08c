// Package algebra defines the SPARQL 1.1 algebra tree that the parser
// produces and the planner rewrites: BGP, Join, LeftJoin, Filter, Union,
// Extend, Minus, Graph, Service, Values, Project, Distinct, Reduced,
// Slice, OrderBy, Group(+aggregates), Path, and the Select/Ask/
// Construct/Describe query roots.
package algebra

import "github.com/aleksaelezovic/oxigo/pkg/rdf"

// Variable is a SPARQL query variable, e.g. "?name" stored without the
// leading sigil.
type Variable string

// TermOrVariable is either a fixed rdf.Term or a Variable; exactly one of
// the two fields is set.
type TermOrVariable struct {
	Term rdf.Term
	Var  Variable
}

func Fixed(t rdf.Term) TermOrVariable     { return TermOrVariable{Term: t} }
func Var(name string) TermOrVariable      { return TermOrVariable{Var: Variable(name)} }
func (t TermOrVariable) IsVariable() bool { return t.Term == nil }

// TriplePattern is a single (subject, predicate, object) pattern inside a
// BGP, evaluated against the default graph or the enclosing Graph node.
type TriplePattern struct {
	Subject   TermOrVariable
	Predicate TermOrVariable
	Object    TermOrVariable
}

// Node is any algebra tree node.
type Node interface {
	node()
}

// BGP is a basic graph pattern: a set of triple patterns evaluated
// together against one graph (the default graph unless wrapped in Graph).
type BGP struct {
	Patterns []TriplePattern
}

// Join is an inner join of Left and Right on shared variables.
type Join struct {
	Left, Right Node
}

// LeftJoin is OPTIONAL { Right }, filtered by Expr if present.
type LeftJoin struct {
	Left, Right Node
	Expr        Expr // nil if no FILTER inside the OPTIONAL
}

// Filter keeps only bindings for which Expr's effective boolean value is
// true.
type Filter struct {
	Child Node
	Expr  Expr
}

// Union is the bag union of Left and Right.
type Union struct {
	Left, Right Node
}

// Extend adds Var = Expr to every binding produced by Child (BIND).
type Extend struct {
	Child Node
	Var   Variable
	Expr  Expr
}

// Minus removes from Left any binding compatible with some binding of
// Right.
type Minus struct {
	Left, Right Node
}

// Graph restricts Child to the named graph bound to Name (may itself be a
// variable, iterating over every known graph).
type Graph struct {
	Name  TermOrVariable
	Child Node
}

// Service delegates Child to a remote SPARQL endpoint at Endpoint;
// Silent suppresses failures (empty result instead of error).
type Service struct {
	Endpoint TermOrVariable
	Child    Node
	Silent   bool
}

// Values supplies an inline table of bindings for Vars.
type Values struct {
	Vars Variable
	Rows []map[Variable]rdf.Term
}

// MultiValues is the common case: VALUES (?a ?b) { (.. ..) (.. ..) }.
type MultiValues struct {
	Vars []Variable
	Rows [][]rdf.Term // nil entry at position i = UNDEF
}

func (BGP) node()         {}
func (Join) node()        {}
func (LeftJoin) node()    {}
func (Filter) node()      {}
func (Union) node()       {}
func (Extend) node()      {}
func (Minus) node()       {}
func (Graph) node()       {}
func (Service) node()     {}
func (Values) node()      {}
func (MultiValues) node() {}

// Project narrows bindings down to Vars, in order.
type Project struct {
	Child Node
	Vars  []Variable
}

// Distinct removes duplicate bindings (hash-set based).
type Distinct struct{ Child Node }

// Reduced allows (does not require) duplicate elimination.
type Reduced struct{ Child Node }

// Slice implements LIMIT/OFFSET; HasLimit false means unbounded (Limit is
// then ignored).
type Slice struct {
	Child    Node
	Offset   int64
	Limit    int64
	HasLimit bool
}

// OrderCondition is one ORDER BY key; Descending reverses its comparison.
type OrderCondition struct {
	Expr       Expr
	Descending bool
}

// OrderBy sorts Child's bindings by Conditions, in order.
type OrderBy struct {
	Child      Node
	Conditions []OrderCondition
}

// Aggregate is one SELECT-list aggregate expression, e.g. COUNT(DISTINCT ?x).
type Aggregate struct {
	Func      string // COUNT, SUM, AVG, MIN, MAX, SAMPLE, GROUP_CONCAT
	Expr      Expr   // nil for COUNT(*)
	Distinct  bool
	Separator string // GROUP_CONCAT SEPARATOR, default " "
	Var       Variable
}

// Group buckets Child's bindings by Keys and attaches Aggregates, each
// producing one output binding per group (plus the group keys).
type Group struct {
	Child      Node
	Keys       []Expr
	KeyVars    []Variable // BIND-like names for each key, "" if none
	Aggregates []Aggregate
}

// PathOp names a property-path operator (finite ones are expanded away by
// the planner; *, +, ? need runtime fixpoint/optional handling).
type PathOp int

const (
	PathDirect PathOp = iota
	PathInverse
	PathSequence
	PathAlternative
	PathZeroOrMore
	PathOneOrMore
	PathZeroOrOne
	PathNegatedSet
)

// PathExpr is a property path expression tree.
type PathExpr struct {
	Op       PathOp
	Term     rdf.Term   // PathDirect / PathNegatedSet leaf
	Children []PathExpr // operands for composite ops
}

// Path is subject -path-> object across the quad store (or named graph if
// wrapped in Graph); BFS-with-visited-set evaluation for *, +.
type Path struct {
	Subject TermOrVariable
	Path    PathExpr
	Object  TermOrVariable
}

func (Project) node()  {}
func (Distinct) node() {}
func (Reduced) node()  {}
func (Slice) node()    {}
func (OrderBy) node()  {}
func (Group) node()    {}
func (Path) node()     {}

// QueryForm distinguishes the four SPARQL query roots.
type QueryForm int

const (
	FormSelect QueryForm = iota
	FormAsk
	FormConstruct
	FormDescribe
)

// Query is a complete, planned/unplanned SPARQL query.
type Query struct {
	Form     QueryForm
	Root     Node            // the WHERE clause algebra (nil for DESCRIBE-by-IRI-only)
	Template []TriplePattern // CONSTRUCT template
	Describe []TermOrVariable
	BaseURI  string
}
