package sparqlparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/oxierr"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// Parser turns SPARQL query/update text into an algebra.Query. Grounded on
// the teacher's hand-rolled recursive-descent parser shape: a lexer
// feeding a one-token-lookahead parser, rather than a generated grammar.
type Parser struct {
	lex      *lexer
	cur      token
	prefixes map[string]string
	base     string
	bnodeSeq int
}

// Parse parses a single SPARQL query (SELECT/ASK/CONSTRUCT/DESCRIBE).
func Parse(src string) (*algebra.Query, error) {
	p := &Parser{lex: newLexer(src), prefixes: map[string]string{}}
	if err := p.advance(); err != nil {
		return nil, oxierr.InvalidInput("%v", err)
	}
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}
	q, err := p.parseQuery()
	if err != nil {
		return nil, oxierr.InvalidInput("%v", err)
	}
	return q, nil
}

func (p *Parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *Parser) atKeyword(kw string) bool {
	return p.cur.kind == tokKeyword && p.cur.text == kw
}

func (p *Parser) atPunct(s string) bool {
	return p.cur.kind == tokPunct && p.cur.text == s
}

func (p *Parser) expectPunct(s string) error {
	if !p.atPunct(s) {
		return fmt.Errorf("expected %q, got %q", s, p.cur.text)
	}
	return p.advance()
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return fmt.Errorf("expected keyword %q, got %q", kw, p.cur.text)
	}
	return p.advance()
}

// --- Prologue: PREFIX/BASE ---

func (p *Parser) parsePrologue() error {
	for {
		switch {
		case p.atKeyword("PREFIX"):
			if err := p.advance(); err != nil {
				return err
			}
			if p.cur.kind != tokPrefixedName && p.cur.kind != tokPunct {
				return fmt.Errorf("expected prefix name")
			}
			name := strings.TrimSuffix(p.cur.text, ":")
			if err := p.advance(); err != nil {
				return err
			}
			if p.cur.kind != tokIRI {
				return fmt.Errorf("expected IRI after PREFIX %s:", name)
			}
			p.prefixes[name] = p.cur.text
			if err := p.advance(); err != nil {
				return err
			}
		case p.atKeyword("BASE"):
			if err := p.advance(); err != nil {
				return err
			}
			if p.cur.kind != tokIRI {
				return fmt.Errorf("expected IRI after BASE")
			}
			p.base = p.cur.text
			if err := p.advance(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *Parser) resolveIRI(prefixed string) (string, error) {
	idx := strings.IndexByte(prefixed, ':')
	if idx < 0 {
		return "", fmt.Errorf("malformed prefixed name %q", prefixed)
	}
	prefix, local := prefixed[:idx], prefixed[idx+1:]
	ns, ok := p.prefixes[prefix]
	if !ok {
		return "", oxierr.InvalidInput("undefined prefix %q", prefix)
	}
	return ns + local, nil
}

// --- Query forms ---

func (p *Parser) parseQuery() (*algebra.Query, error) {
	switch {
	case p.atKeyword("SELECT"):
		return p.parseSelect()
	case p.atKeyword("ASK"):
		return p.parseAsk()
	case p.atKeyword("CONSTRUCT"):
		return p.parseConstruct()
	case p.atKeyword("DESCRIBE"):
		return p.parseDescribe()
	default:
		return nil, fmt.Errorf("expected SELECT/ASK/CONSTRUCT/DESCRIBE, got %q", p.cur.text)
	}
}

func (p *Parser) parseSelect() (*algebra.Query, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	distinct, reduced := false, false
	if p.atKeyword("DISTINCT") {
		distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else if p.atKeyword("REDUCED") {
		reduced = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	var vars []algebra.Variable
	var aggregates []algebra.Aggregate
	var computed []algebra.Extend
	star := false
	if p.atPunct("*") {
		star = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		for p.cur.kind == tokVar || p.atPunct("(") {
			if p.cur.kind == tokVar {
				vars = append(vars, algebra.Variable(p.cur.text))
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			// (expr AS ?v) — may be a plain expression or an aggregate.
			if err := p.advance(); err != nil {
				return nil, err
			}
			agg, isAgg, expr, err := p.parseSelectExprOrAggregate()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("AS"); err != nil {
				return nil, err
			}
			if p.cur.kind != tokVar {
				return nil, fmt.Errorf("expected variable after AS")
			}
			name := algebra.Variable(p.cur.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			vars = append(vars, name)
			if isAgg {
				agg.Var = name
				aggregates = append(aggregates, agg)
			} else {
				computed = append(computed, algebra.Extend{Var: name, Expr: expr})
			}
		}
	}

	if err := p.expectKeyword("WHERE"); err != nil {
		if !p.atPunct("{") {
			return nil, err
		}
	}
	root, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}

	root, groupVars, err := p.applyGroupBy(root, aggregates)
	if err != nil {
		return nil, err
	}
	// Plain computed columns become Extend nodes over the grouped pattern.
	for _, ext := range computed {
		root = algebra.Extend{Child: root, Var: ext.Var, Expr: ext.Expr}
	}
	root, err = p.applyOrderBy(root)
	if err != nil {
		return nil, err
	}
	root, err = p.applySlice(root)
	if err != nil {
		return nil, err
	}

	if !star {
		root = algebra.Project{Child: root, Vars: vars}
	} else if len(groupVars) > 0 {
		root = algebra.Project{Child: root, Vars: groupVars}
	}
	if distinct {
		root = algebra.Distinct{Child: root}
	} else if reduced {
		root = algebra.Reduced{Child: root}
	}

	return &algebra.Query{Form: algebra.FormSelect, Root: root, BaseURI: p.base}, nil
}

func (p *Parser) parseSelectExprOrAggregate() (algebra.Aggregate, bool, algebra.Expr, error) {
	if p.cur.kind == tokKeyword {
		switch p.cur.text {
		case "COUNT", "SUM", "AVG", "MIN", "MAX", "SAMPLE", "GROUP_CONCAT":
			return p.parseAggregate()
		}
	}
	e, err := p.parseExpression()
	return algebra.Aggregate{}, false, e, err
}

func (p *Parser) parseAggregate() (algebra.Aggregate, bool, algebra.Expr, error) {
	fn := p.cur.text
	if err := p.advance(); err != nil {
		return algebra.Aggregate{}, false, nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return algebra.Aggregate{}, false, nil, err
	}
	distinct := false
	if p.atKeyword("DISTINCT") {
		distinct = true
		if err := p.advance(); err != nil {
			return algebra.Aggregate{}, false, nil, err
		}
	}
	var expr algebra.Expr
	if p.atPunct("*") {
		if err := p.advance(); err != nil {
			return algebra.Aggregate{}, false, nil, err
		}
	} else {
		var err error
		expr, err = p.parseExpression()
		if err != nil {
			return algebra.Aggregate{}, false, nil, err
		}
	}
	separator := " "
	if p.atPunct(";") {
		// SEPARATOR is introduced via ";": `; SEPARATOR = "..."`.
		if err := p.advance(); err != nil {
			return algebra.Aggregate{}, false, nil, err
		}
		if err := p.expectKeyword("SEPARATOR"); err != nil {
			return algebra.Aggregate{}, false, nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return algebra.Aggregate{}, false, nil, err
		}
		if p.cur.kind != tokString {
			return algebra.Aggregate{}, false, nil, fmt.Errorf("expected string after SEPARATOR =")
		}
		separator = p.cur.text
		if err := p.advance(); err != nil {
			return algebra.Aggregate{}, false, nil, err
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return algebra.Aggregate{}, false, nil, err
	}
	return algebra.Aggregate{Func: fn, Expr: expr, Distinct: distinct, Separator: separator}, true, nil, nil
}

func (p *Parser) parseAsk() (*algebra.Query, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil && !p.atPunct("{") {
		return nil, err
	}
	root, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return &algebra.Query{Form: algebra.FormAsk, Root: root, BaseURI: p.base}, nil
}

func (p *Parser) parseConstruct() (*algebra.Query, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	template, err := p.parseTriplesTemplate()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil && !p.atPunct("{") {
		return nil, err
	}
	root, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return &algebra.Query{Form: algebra.FormConstruct, Root: root, Template: template, BaseURI: p.base}, nil
}

func (p *Parser) parseDescribe() (*algebra.Query, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	var targets []algebra.TermOrVariable
	star := false
	if p.atPunct("*") {
		star = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		for p.cur.kind == tokVar || p.cur.kind == tokIRI || p.cur.kind == tokPrefixedName {
			t, err := p.parseVarOrTerm()
			if err != nil {
				return nil, err
			}
			targets = append(targets, t)
		}
	}
	var root algebra.Node
	if p.atKeyword("WHERE") || p.atPunct("{") {
		if p.atKeyword("WHERE") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		var err error
		root, err = p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
	}
	_ = star
	return &algebra.Query{Form: algebra.FormDescribe, Root: root, Describe: targets, BaseURI: p.base}, nil
}

// --- Group graph pattern ---

func (p *Parser) parseGroupGraphPattern() (algebra.Node, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var result algebra.Node
	for !p.atPunct("}") {
		if p.cur.kind == tokEOF {
			return nil, fmt.Errorf("unexpected end of input inside {}")
		}
		switch {
		case p.atKeyword("FILTER"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = algebra.BGP{}
			}
			result = algebra.Filter{Child: result, Expr: e}

		case p.atKeyword("OPTIONAL"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = algebra.BGP{}
			}
			result = algebra.LeftJoin{Left: result, Right: right}

		case p.atKeyword("MINUS"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = algebra.BGP{}
			}
			result = algebra.Minus{Left: result, Right: right}

		case p.atKeyword("BIND"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("AS"); err != nil {
				return nil, err
			}
			if p.cur.kind != tokVar {
				return nil, fmt.Errorf("expected variable after AS in BIND")
			}
			v := algebra.Variable(p.cur.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			if result == nil {
				result = algebra.BGP{}
			}
			result = algebra.Extend{Child: result, Var: v, Expr: e}

		case p.atKeyword("VALUES"):
			v, err := p.parseValues()
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = v
			} else {
				result = algebra.Join{Left: result, Right: v}
			}

		case p.atKeyword("GRAPH"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			name, err := p.parseVarOrTerm()
			if err != nil {
				return nil, err
			}
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			g := algebra.Graph{Name: name, Child: inner}
			if result == nil {
				result = g
			} else {
				result = algebra.Join{Left: result, Right: g}
			}

		case p.atKeyword("SERVICE"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			silent := false
			if p.atKeyword("SILENT") {
				silent = true
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			endpoint, err := p.parseVarOrTerm()
			if err != nil {
				return nil, err
			}
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			svc := algebra.Service{Endpoint: endpoint, Child: inner, Silent: silent}
			if result == nil {
				result = svc
			} else {
				result = algebra.Join{Left: result, Right: svc}
			}

		case p.atPunct("{"):
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			if p.atKeyword("UNION") {
				for p.atKeyword("UNION") {
					if err := p.advance(); err != nil {
						return nil, err
					}
					rhs, err := p.parseGroupGraphPattern()
					if err != nil {
						return nil, err
					}
					inner = algebra.Union{Left: inner, Right: rhs}
				}
			}
			if result == nil {
				result = inner
			} else {
				result = algebra.Join{Left: result, Right: inner}
			}

		default:
			bgp, path, err := p.parseTriplesBlock()
			if err != nil {
				return nil, err
			}
			var block algebra.Node = bgp
			for _, pe := range path {
				if block == nil {
					block = pe
				} else {
					block = algebra.Join{Left: block, Right: pe}
				}
			}
			if result == nil {
				result = block
			} else if bgpNode, ok := result.(algebra.BGP); ok {
				if otherBGP, ok2 := block.(algebra.BGP); ok2 {
					result = algebra.BGP{Patterns: append(bgpNode.Patterns, otherBGP.Patterns...)}
					continue
				}
				result = algebra.Join{Left: result, Right: block}
			} else {
				result = algebra.Join{Left: result, Right: block}
			}
		}

		if p.atPunct(".") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	if result == nil {
		result = algebra.BGP{}
	}
	return result, nil
}

// parseTriplesBlock parses one subject and its `;`-separated
// predicate-object lists (the caller consumes any following `.`), returning a
// BGP of the fixed-predicate ones and a slice of Path nodes for any
// property-path triples (those with a composite path expression).
func (p *Parser) parseTriplesBlock() (algebra.BGP, []algebra.Path, error) {
	var bgp algebra.BGP
	var paths []algebra.Path

	subj, err := p.parseVarOrTerm()
	if err != nil {
		return bgp, nil, err
	}
	for {
		predObjOK, err := p.parsePredicateObjectList(subj, &bgp, &paths)
		if err != nil {
			return bgp, nil, err
		}
		_ = predObjOK
		if !p.atPunct(";") {
			break
		}
		for p.atPunct(";") {
			if err := p.advance(); err != nil {
				return bgp, nil, err
			}
		}
		if p.atPunct(".") || p.atPunct("}") {
			break
		}
	}
	return bgp, paths, nil
}

func (p *Parser) parsePredicateObjectList(subj algebra.TermOrVariable, bgp *algebra.BGP, paths *[]algebra.Path) (bool, error) {
	for {
		predVar, pe, isPath, err := p.parsePropertyPathOrVerb()
		if err != nil {
			return false, err
		}
		for {
			obj, err := p.parseVarOrTerm()
			if err != nil {
				return false, err
			}
			if isPath {
				*paths = append(*paths, algebra.Path{Subject: subj, Path: pe, Object: obj})
			} else {
				pred := algebra.TermOrVariable{Term: pe.Term}
				if pe.Term == nil {
					pred = algebra.TermOrVariable{Var: predVar}
				}
				bgp.Patterns = append(bgp.Patterns, algebra.TriplePattern{Subject: subj, Predicate: pred, Object: obj})
			}
			if !p.atPunct(",") {
				break
			}
			if err := p.advance(); err != nil {
				return false, err
			}
		}
		if !p.atPunct(";") {
			break
		}
		// caller (parseTriplesBlock) consumes the ';'
		break
	}
	return true, nil
}

// parsePropertyPathOrVerb parses one predicate slot: `a`, a plain
// IRI/prefixed-name (isPath=false), a bare variable (isPath=false, var
// returned), or a composite property path expression (isPath=true).
func (p *Parser) parsePropertyPathOrVerb() (algebra.Variable, algebra.PathExpr, bool, error) {
	if p.atKeyword("A") {
		if err := p.advance(); err != nil {
			return "", algebra.PathExpr{}, false, err
		}
		return "", algebra.PathExpr{Op: algebra.PathDirect, Term: rdf.NewNamedNode(rdfTypeIRI)}, false, nil
	}
	if p.cur.kind == tokVar {
		v := algebra.Variable(p.cur.text)
		if err := p.advance(); err != nil {
			return "", algebra.PathExpr{}, false, err
		}
		return v, algebra.PathExpr{}, false, nil
	}
	path, err := p.parsePath()
	if err != nil {
		return "", algebra.PathExpr{}, false, err
	}
	if path.Op == algebra.PathDirect && len(path.Children) == 0 {
		return "", path, false, nil
	}
	return "", path, true, nil
}

const rdfTypeIRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// parsePath parses a (possibly composite) property path expression using
// precedence: '|' (alternative) lowest, then '/' (sequence), then postfix
// '*'/'+'/'?', then prefix '^'/'!' and parenthesization, with a bare
// IRI/prefixed-name/var at the leaves.
func (p *Parser) parsePath() (algebra.PathExpr, error) {
	left, err := p.parsePathSequence()
	if err != nil {
		return algebra.PathExpr{}, err
	}
	for p.atPunct("|") {
		if err := p.advance(); err != nil {
			return algebra.PathExpr{}, err
		}
		right, err := p.parsePathSequence()
		if err != nil {
			return algebra.PathExpr{}, err
		}
		left = algebra.PathExpr{Op: algebra.PathAlternative, Children: []algebra.PathExpr{left, right}}
	}
	return left, nil
}

func (p *Parser) parsePathSequence() (algebra.PathExpr, error) {
	left, err := p.parsePathPostfix()
	if err != nil {
		return algebra.PathExpr{}, err
	}
	for p.atPunct("/") {
		if err := p.advance(); err != nil {
			return algebra.PathExpr{}, err
		}
		right, err := p.parsePathPostfix()
		if err != nil {
			return algebra.PathExpr{}, err
		}
		left = algebra.PathExpr{Op: algebra.PathSequence, Children: []algebra.PathExpr{left, right}}
	}
	return left, nil
}

func (p *Parser) parsePathPostfix() (algebra.PathExpr, error) {
	base, err := p.parsePathPrimary()
	if err != nil {
		return algebra.PathExpr{}, err
	}
	for {
		switch {
		case p.atPunct("*"):
			if err := p.advance(); err != nil {
				return algebra.PathExpr{}, err
			}
			base = algebra.PathExpr{Op: algebra.PathZeroOrMore, Children: []algebra.PathExpr{base}}
		case p.atPunct("+"):
			if err := p.advance(); err != nil {
				return algebra.PathExpr{}, err
			}
			base = algebra.PathExpr{Op: algebra.PathOneOrMore, Children: []algebra.PathExpr{base}}
		case p.atPunct("?"):
			if err := p.advance(); err != nil {
				return algebra.PathExpr{}, err
			}
			base = algebra.PathExpr{Op: algebra.PathZeroOrOne, Children: []algebra.PathExpr{base}}
		default:
			return base, nil
		}
	}
}

func (p *Parser) parsePathPrimary() (algebra.PathExpr, error) {
	switch {
	case p.atPunct("^"):
		if err := p.advance(); err != nil {
			return algebra.PathExpr{}, err
		}
		inner, err := p.parsePathPrimary()
		if err != nil {
			return algebra.PathExpr{}, err
		}
		return algebra.PathExpr{Op: algebra.PathInverse, Children: []algebra.PathExpr{inner}}, nil
	case p.atPunct("!"):
		if err := p.advance(); err != nil {
			return algebra.PathExpr{}, err
		}
		inner, err := p.parsePathPrimary()
		if err != nil {
			return algebra.PathExpr{}, err
		}
		return algebra.PathExpr{Op: algebra.PathNegatedSet, Children: []algebra.PathExpr{inner}}, nil
	case p.atPunct("("):
		if err := p.advance(); err != nil {
			return algebra.PathExpr{}, err
		}
		inner, err := p.parsePath()
		if err != nil {
			return algebra.PathExpr{}, err
		}
		if err := p.expectPunct(")"); err != nil {
			return algebra.PathExpr{}, err
		}
		return inner, nil
	case p.cur.kind == tokIRI || p.cur.kind == tokPrefixedName:
		iri, err := p.resolveTermIRI()
		if err != nil {
			return algebra.PathExpr{}, err
		}
		return algebra.PathExpr{Op: algebra.PathDirect, Term: rdf.NewNamedNode(iri)}, nil
	default:
		return algebra.PathExpr{}, fmt.Errorf("unexpected token %q in property path", p.cur.text)
	}
}

func (p *Parser) resolveTermIRI() (string, error) {
	if p.cur.kind == tokIRI {
		iri := p.cur.text
		if err := p.advance(); err != nil {
			return "", err
		}
		return iri, nil
	}
	iri, err := p.resolveIRI(p.cur.text)
	if err != nil {
		return "", err
	}
	if err := p.advance(); err != nil {
		return "", err
	}
	return iri, nil
}

// --- Terms ---

func (p *Parser) parseVarOrTerm() (algebra.TermOrVariable, error) {
	switch p.cur.kind {
	case tokVar:
		v := algebra.Var(p.cur.text)
		return v, p.advance()
	case tokIRI:
		iri := p.cur.text
		if err := p.advance(); err != nil {
			return algebra.TermOrVariable{}, err
		}
		return algebra.Fixed(rdf.NewNamedNode(iri)), nil
	case tokPrefixedName:
		iri, err := p.resolveIRI(p.cur.text)
		if err != nil {
			return algebra.TermOrVariable{}, err
		}
		if err := p.advance(); err != nil {
			return algebra.TermOrVariable{}, err
		}
		return algebra.Fixed(rdf.NewNamedNode(iri)), nil
	case tokBlankNode:
		id := p.cur.text
		if err := p.advance(); err != nil {
			return algebra.TermOrVariable{}, err
		}
		return algebra.Fixed(rdf.NewBlankNode(id)), nil
	case tokString:
		return p.parseLiteral()
	case tokNumber:
		return p.parseNumericLiteral()
	case tokKeyword:
		switch p.cur.text {
		case "A":
			if err := p.advance(); err != nil {
				return algebra.TermOrVariable{}, err
			}
			return algebra.Fixed(rdf.NewNamedNode(rdfTypeIRI)), nil
		case "TRUE":
			if err := p.advance(); err != nil {
				return algebra.TermOrVariable{}, err
			}
			return algebra.Fixed(rdf.NewBooleanLiteral(true)), nil
		case "FALSE":
			if err := p.advance(); err != nil {
				return algebra.TermOrVariable{}, err
			}
			return algebra.Fixed(rdf.NewBooleanLiteral(false)), nil
		}
		return algebra.TermOrVariable{}, fmt.Errorf("unexpected keyword %q as term", p.cur.text)
	case tokPunct:
		if p.cur.text == "[" {
			// Anonymous blank node; any nested predicate-object list is
			// skipped token by token up to the first "]" and not matched.
			p.bnodeSeq++
			id := fmt.Sprintf("_anon%d", p.bnodeSeq)
			if err := p.advance(); err != nil {
				return algebra.TermOrVariable{}, err
			}
			for !p.atPunct("]") {
				if err := p.advance(); err != nil {
					return algebra.TermOrVariable{}, err
				}
			}
			if err := p.advance(); err != nil {
				return algebra.TermOrVariable{}, err
			}
			return algebra.Fixed(rdf.NewBlankNode(id)), nil
		}
	}
	return algebra.TermOrVariable{}, fmt.Errorf("unexpected token %q while parsing a term", p.cur.text)
}

func (p *Parser) parseLiteral() (algebra.TermOrVariable, error) {
	value := p.cur.text
	if err := p.advance(); err != nil {
		return algebra.TermOrVariable{}, err
	}
	if p.atPunct("@") {
		// The lexer has no "@" token, so this branch never runs: a
		// language tag after a string is a lex error, not a tagged literal.
	}
	if p.cur.kind == tokPunct && p.cur.text == "^^" {
		if err := p.advance(); err != nil {
			return algebra.TermOrVariable{}, err
		}
		iri, err := p.resolveTermIRI()
		if err != nil {
			return algebra.TermOrVariable{}, err
		}
		return algebra.Fixed(rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(iri))), nil
	}
	return algebra.Fixed(rdf.NewLiteral(value)), nil
}

func (p *Parser) parseNumericLiteral() (algebra.TermOrVariable, error) {
	text := p.cur.text
	if err := p.advance(); err != nil {
		return algebra.TermOrVariable{}, err
	}
	if strings.ContainsAny(text, ".eE") {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return algebra.TermOrVariable{}, err
		}
		return algebra.Fixed(rdf.NewDecimalLiteral(v)), nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return algebra.TermOrVariable{}, err
	}
	return algebra.Fixed(rdf.NewIntegerLiteral(v)), nil
}

func (p *Parser) parseTriplesTemplate() ([]algebra.TriplePattern, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var patterns []algebra.TriplePattern
	for !p.atPunct("}") {
		subj, err := p.parseVarOrTerm()
		if err != nil {
			return nil, err
		}
		for {
			pred, err := p.parseVarOrTerm()
			if err != nil {
				return nil, err
			}
			for {
				obj, err := p.parseVarOrTerm()
				if err != nil {
					return nil, err
				}
				patterns = append(patterns, algebra.TriplePattern{Subject: subj, Predicate: pred, Object: obj})
				if !p.atPunct(",") {
					break
				}
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			if !p.atPunct(";") {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.atPunct(".") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return patterns, nil
}

// --- VALUES ---

func (p *Parser) parseValues() (algebra.Node, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	var vars []algebra.Variable
	if p.atPunct("(") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		for p.cur.kind == tokVar {
			vars = append(vars, algebra.Variable(p.cur.text))
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	} else if p.cur.kind == tokVar {
		vars = append(vars, algebra.Variable(p.cur.text))
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var rows [][]rdf.Term
	for !p.atPunct("}") {
		row, err := p.parseValuesRow(len(vars))
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return algebra.MultiValues{Vars: vars, Rows: rows}, nil
}

func (p *Parser) parseValuesRow(width int) ([]rdf.Term, error) {
	grouped := p.atPunct("(")
	if grouped {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	row := make([]rdf.Term, 0, width)
	for {
		if p.atKeyword("UNDEF") {
			row = append(row, nil)
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			tv, err := p.parseVarOrTerm()
			if err != nil {
				return nil, err
			}
			row = append(row, tv.Term)
		}
		if grouped && !p.atPunct(")") {
			continue
		}
		break
	}
	if grouped {
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// --- Solution modifiers ---

func (p *Parser) applyGroupBy(root algebra.Node, aggregates []algebra.Aggregate) (algebra.Node, []algebra.Variable, error) {
	if !p.atKeyword("GROUP") {
		if len(aggregates) > 0 {
			return algebra.Group{Child: root, Aggregates: aggregates}, nil, nil
		}
		return root, nil, nil
	}
	if err := p.advance(); err != nil {
		return nil, nil, err
	}
	if err := p.expectKeyword("BY"); err != nil {
		return nil, nil, err
	}
	var keys []algebra.Expr
	var keyVars []algebra.Variable
	for {
		if p.cur.kind == tokVar {
			keys = append(keys, algebra.VarExpr{Var: algebra.Variable(p.cur.text)})
			keyVars = append(keyVars, algebra.Variable(p.cur.text))
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
		} else if p.atPunct("(") {
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
			e, err := p.parseExpression()
			if err != nil {
				return nil, nil, err
			}
			name := algebra.Variable("")
			if p.atKeyword("AS") {
				if err := p.advance(); err != nil {
					return nil, nil, err
				}
				if p.cur.kind == tokVar {
					name = algebra.Variable(p.cur.text)
					if err := p.advance(); err != nil {
						return nil, nil, err
					}
				}
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, nil, err
			}
			keys = append(keys, e)
			keyVars = append(keyVars, name)
		} else {
			break
		}
	}
	g := algebra.Group{Child: root, Keys: keys, KeyVars: keyVars, Aggregates: aggregates}
	var node algebra.Node = g
	if p.atKeyword("HAVING") {
		if err := p.advance(); err != nil {
			return nil, nil, err
		}
		e, err := p.parseConstraint()
		if err != nil {
			return nil, nil, err
		}
		node = algebra.Filter{Child: node, Expr: e}
	}
	return node, keyVars, nil
}

func (p *Parser) applyOrderBy(root algebra.Node) (algebra.Node, error) {
	if !p.atKeyword("ORDER") {
		return root, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("BY"); err != nil {
		return nil, err
	}
	var conds []algebra.OrderCondition
	for {
		desc := false
		if p.atKeyword("ASC") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			conds = append(conds, algebra.OrderCondition{Expr: e})
			continue
		}
		if p.atKeyword("DESC") {
			desc = true
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			conds = append(conds, algebra.OrderCondition{Expr: e, Descending: desc})
			continue
		}
		if p.cur.kind == tokVar || p.atPunct("(") {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			conds = append(conds, algebra.OrderCondition{Expr: e})
			continue
		}
		break
	}
	return algebra.OrderBy{Child: root, Conditions: conds}, nil
}

func (p *Parser) applySlice(root algebra.Node) (algebra.Node, error) {
	var offset, limit int64
	hasLimit := false
	for p.atKeyword("LIMIT") || p.atKeyword("OFFSET") {
		isLimit := p.atKeyword("LIMIT")
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tokNumber {
			return nil, fmt.Errorf("expected number after LIMIT/OFFSET")
		}
		n, err := strconv.ParseInt(p.cur.text, 10, 64)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if isLimit {
			limit = n
			hasLimit = true
		} else {
			offset = n
		}
	}
	if !hasLimit && offset == 0 {
		return root, nil
	}
	return algebra.Slice{Child: root, Offset: offset, Limit: limit, HasLimit: hasLimit}, nil
}
