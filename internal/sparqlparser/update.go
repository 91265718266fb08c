package sparqlparser

import (
	"fmt"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/oxierr"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// ParseUpdate parses a SPARQL 1.1 Update request: a prologue followed by
// one or more `;`-separated update operations.
func ParseUpdate(src string) (*algebra.Update, error) {
	p := &Parser{lex: newLexer(src), prefixes: map[string]string{}}
	if err := p.advance(); err != nil {
		return nil, oxierr.InvalidInput("%v", err)
	}

	u := &algebra.Update{}
	for {
		if err := p.parsePrologue(); err != nil {
			return nil, oxierr.InvalidInput("%v", err)
		}
		if p.cur.kind == tokEOF {
			break
		}
		op, err := p.parseUpdateOperation()
		if err != nil {
			return nil, oxierr.InvalidInput("%v", err)
		}
		u.Operations = append(u.Operations, op)
		if p.atPunct(";") {
			if err := p.advance(); err != nil {
				return nil, oxierr.InvalidInput("%v", err)
			}
			continue
		}
		break
	}
	u.BaseURI = p.base
	return u, nil
}

func (p *Parser) parseUpdateOperation() (algebra.UpdateOperation, error) {
	switch {
	case p.atKeyword("INSERT"):
		return p.parseInsertOrDelete()
	case p.atKeyword("DELETE"):
		return p.parseInsertOrDelete()
	case p.atKeyword("LOAD"):
		return p.parseLoad()
	case p.atKeyword("CLEAR"):
		return p.parseClearOrDrop(algebra.OpClear)
	case p.atKeyword("DROP"):
		return p.parseClearOrDrop(algebra.OpDrop)
	case p.atKeyword("CREATE"):
		return p.parseCreate()
	case p.atKeyword("COPY"):
		return p.parseCopyMoveAdd(algebra.OpCopy)
	case p.atKeyword("MOVE"):
		return p.parseCopyMoveAdd(algebra.OpMove)
	case p.atKeyword("ADD"):
		return p.parseCopyMoveAdd(algebra.OpAdd)
	case p.atKeyword("WITH"):
		return p.parseDeleteInsertWithClause()
	default:
		return algebra.UpdateOperation{}, fmt.Errorf("expected an update operation, got %q", p.cur.text)
	}
}

// parseInsertOrDelete dispatches INSERT DATA / DELETE DATA / DELETE WHERE
// / the full DELETE {...} INSERT {...} WHERE {...} form.
func (p *Parser) parseInsertOrDelete() (algebra.UpdateOperation, error) {
	isDelete := p.atKeyword("DELETE")
	if err := p.advance(); err != nil {
		return algebra.UpdateOperation{}, err
	}

	if p.atKeyword("DATA") {
		if err := p.advance(); err != nil {
			return algebra.UpdateOperation{}, err
		}
		data, err := p.parseQuadData()
		if err != nil {
			return algebra.UpdateOperation{}, err
		}
		op := algebra.OpInsertData
		if isDelete {
			op = algebra.OpDeleteData
		}
		return algebra.UpdateOperation{Op: op, Data: data}, nil
	}

	if isDelete && p.atKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return algebra.UpdateOperation{}, err
		}
		template, err := p.parseTriplesTemplate()
		if err != nil {
			return algebra.UpdateOperation{}, err
		}
		return algebra.UpdateOperation{Op: algebra.OpDeleteInsert, DeleteTemplate: template, Where: algebra.BGP{Patterns: template}}, nil
	}

	// Full form: DELETE { ... } [INSERT { ... }] [USING ...] WHERE { ... },
	// or INSERT { ... } [USING ...] WHERE { ... }.
	var deleteTemplate, insertTemplate []algebra.TriplePattern
	var err error
	if isDelete {
		deleteTemplate, err = p.parseTriplesTemplate()
		if err != nil {
			return algebra.UpdateOperation{}, err
		}
		if p.atKeyword("INSERT") {
			if err := p.advance(); err != nil {
				return algebra.UpdateOperation{}, err
			}
			insertTemplate, err = p.parseTriplesTemplate()
			if err != nil {
				return algebra.UpdateOperation{}, err
			}
		}
	} else {
		insertTemplate, err = p.parseTriplesTemplate()
		if err != nil {
			return algebra.UpdateOperation{}, err
		}
	}
	return p.finishDeleteInsert(deleteTemplate, insertTemplate)
}

// parseDeleteInsertWithClause handles "WITH <iri> DELETE {...} INSERT {...} WHERE {...}",
// applying iri as the default graph for both the templates and the pattern.
func (p *Parser) parseDeleteInsertWithClause() (algebra.UpdateOperation, error) {
	if err := p.advance(); err != nil {
		return algebra.UpdateOperation{}, err
	}
	graphIRI, err := p.resolveTermIRI()
	if err != nil {
		return algebra.UpdateOperation{}, err
	}

	var deleteTemplate, insertTemplate []algebra.TriplePattern
	if p.atKeyword("DELETE") {
		if err := p.advance(); err != nil {
			return algebra.UpdateOperation{}, err
		}
		deleteTemplate, err = p.parseTriplesTemplate()
		if err != nil {
			return algebra.UpdateOperation{}, err
		}
	}
	if p.atKeyword("INSERT") {
		if err := p.advance(); err != nil {
			return algebra.UpdateOperation{}, err
		}
		insertTemplate, err = p.parseTriplesTemplate()
		if err != nil {
			return algebra.UpdateOperation{}, err
		}
	}
	op, err := p.finishDeleteInsert(deleteTemplate, insertTemplate)
	if err != nil {
		return algebra.UpdateOperation{}, err
	}
	op.Where = algebra.Graph{Name: algebra.Fixed(rdf.NewNamedNode(graphIRI)), Child: op.Where}
	return op, nil
}

func (p *Parser) finishDeleteInsert(deleteTemplate, insertTemplate []algebra.TriplePattern) (algebra.UpdateOperation, error) {
	var using []rdf.Term
	for p.atKeyword("USING") {
		if err := p.advance(); err != nil {
			return algebra.UpdateOperation{}, err
		}
		if p.atKeyword("NAMED") {
			if err := p.advance(); err != nil {
				return algebra.UpdateOperation{}, err
			}
		}
		iri, err := p.resolveTermIRI()
		if err != nil {
			return algebra.UpdateOperation{}, err
		}
		using = append(using, rdf.NewNamedNode(iri))
	}

	if err := p.expectKeyword("WHERE"); err != nil {
		return algebra.UpdateOperation{}, err
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return algebra.UpdateOperation{}, err
	}

	return algebra.UpdateOperation{
		Op:             algebra.OpDeleteInsert,
		DeleteTemplate: deleteTemplate,
		InsertTemplate: insertTemplate,
		Using:          using,
		Where:          where,
	}, nil
}

// parseQuadData parses the braced quad-data block of INSERT DATA/DELETE
// DATA: a mix of bare (default-graph) triples and `GRAPH <iri> { ... }`
// blocks.
func (p *Parser) parseQuadData() ([]algebra.QuadData, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var blocks []algebra.QuadData
	var defaultTriples []algebra.TriplePattern

	for !p.atPunct("}") {
		if p.atKeyword("GRAPH") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			iri, err := p.resolveTermIRI()
			if err != nil {
				return nil, err
			}
			triples, err := p.parseTriplesTemplate()
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, algebra.QuadData{Graph: rdf.NewNamedNode(iri), Triples: triples})
			continue
		}
		triples, err := p.parseOneQuadDataTriple()
		if err != nil {
			return nil, err
		}
		defaultTriples = append(defaultTriples, triples...)
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	if len(defaultTriples) > 0 {
		blocks = append([]algebra.QuadData{{Graph: nil, Triples: defaultTriples}}, blocks...)
	}
	return blocks, nil
}

// parseOneQuadDataTriple parses a single subject/predicate-object-list
// terminated by '.', reusing the same grammar as parseTriplesTemplate's
// body but stopping after one subject group (since GRAPH blocks can be
// interleaved with bare triples at the top level of quad data).
func (p *Parser) parseOneQuadDataTriple() ([]algebra.TriplePattern, error) {
	subj, err := p.parseVarOrTerm()
	if err != nil {
		return nil, err
	}
	var out []algebra.TriplePattern
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
			out = append(out, algebra.TriplePattern{Subject: subj, Predicate: pred, Object: obj})
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
	return out, nil
}

func (p *Parser) parseLoad() (algebra.UpdateOperation, error) {
	if err := p.advance(); err != nil {
		return algebra.UpdateOperation{}, err
	}
	silent := false
	if p.atKeyword("SILENT") {
		silent = true
		if err := p.advance(); err != nil {
			return algebra.UpdateOperation{}, err
		}
	}
	source, err := p.resolveTermIRI()
	if err != nil {
		return algebra.UpdateOperation{}, err
	}
	op := algebra.UpdateOperation{Op: algebra.OpLoad, Silent: silent, LoadSource: source}
	if p.atKeyword("INTO") {
		if err := p.advance(); err != nil {
			return algebra.UpdateOperation{}, err
		}
		if err := p.expectKeyword("GRAPH"); err != nil {
			return algebra.UpdateOperation{}, err
		}
		iri, err := p.resolveTermIRI()
		if err != nil {
			return algebra.UpdateOperation{}, err
		}
		target := algebra.GraphTarget{Kind: algebra.TargetIRI, IRI: rdf.NewNamedNode(iri)}
		op.LoadInto = &target
	}
	return op, nil
}

func (p *Parser) parseClearOrDrop(op algebra.UpdateOp) (algebra.UpdateOperation, error) {
	if err := p.advance(); err != nil {
		return algebra.UpdateOperation{}, err
	}
	silent := false
	if p.atKeyword("SILENT") {
		silent = true
		if err := p.advance(); err != nil {
			return algebra.UpdateOperation{}, err
		}
	}
	target, err := p.parseGraphRef()
	if err != nil {
		return algebra.UpdateOperation{}, err
	}
	return algebra.UpdateOperation{Op: op, Silent: silent, Target: target}, nil
}

func (p *Parser) parseCreate() (algebra.UpdateOperation, error) {
	if err := p.advance(); err != nil {
		return algebra.UpdateOperation{}, err
	}
	silent := false
	if p.atKeyword("SILENT") {
		silent = true
		if err := p.advance(); err != nil {
			return algebra.UpdateOperation{}, err
		}
	}
	if err := p.expectKeyword("GRAPH"); err != nil {
		return algebra.UpdateOperation{}, err
	}
	iri, err := p.resolveTermIRI()
	if err != nil {
		return algebra.UpdateOperation{}, err
	}
	return algebra.UpdateOperation{
		Op:     algebra.OpCreate,
		Silent: silent,
		Target: algebra.GraphTarget{Kind: algebra.TargetIRI, IRI: rdf.NewNamedNode(iri)},
	}, nil
}

func (p *Parser) parseCopyMoveAdd(op algebra.UpdateOp) (algebra.UpdateOperation, error) {
	if err := p.advance(); err != nil {
		return algebra.UpdateOperation{}, err
	}
	silent := false
	if p.atKeyword("SILENT") {
		silent = true
		if err := p.advance(); err != nil {
			return algebra.UpdateOperation{}, err
		}
	}
	from, err := p.parseGraphRefNoAllNoNamed()
	if err != nil {
		return algebra.UpdateOperation{}, err
	}
	if err := p.expectKeyword("TO"); err != nil {
		return algebra.UpdateOperation{}, err
	}
	to, err := p.parseGraphRefNoAllNoNamed()
	if err != nil {
		return algebra.UpdateOperation{}, err
	}
	return algebra.UpdateOperation{Op: op, Silent: silent, From: from, To: to}, nil
}

// parseGraphRef parses DEFAULT | GRAPH <iri> | NAMED | ALL (CLEAR/DROP).
func (p *Parser) parseGraphRef() (algebra.GraphTarget, error) {
	switch {
	case p.atKeyword("DEFAULT"):
		return algebra.GraphTarget{Kind: algebra.TargetDefault}, p.advance()
	case p.atKeyword("NAMED"):
		return algebra.GraphTarget{Kind: algebra.TargetNamed}, p.advance()
	case p.atKeyword("ALL"):
		return algebra.GraphTarget{Kind: algebra.TargetAll}, p.advance()
	case p.atKeyword("GRAPH"):
		if err := p.advance(); err != nil {
			return algebra.GraphTarget{}, err
		}
		iri, err := p.resolveTermIRI()
		if err != nil {
			return algebra.GraphTarget{}, err
		}
		return algebra.GraphTarget{Kind: algebra.TargetIRI, IRI: rdf.NewNamedNode(iri)}, nil
	default:
		return algebra.GraphTarget{}, fmt.Errorf("expected DEFAULT/NAMED/ALL/GRAPH, got %q", p.cur.text)
	}
}

// parseGraphRefNoAllNoNamed parses DEFAULT | GRAPH <iri> (COPY/MOVE/ADD
// only allow these two as source/destination).
func (p *Parser) parseGraphRefNoAllNoNamed() (algebra.GraphTarget, error) {
	switch {
	case p.atKeyword("DEFAULT"):
		return algebra.GraphTarget{Kind: algebra.TargetDefault}, p.advance()
	case p.atKeyword("GRAPH"):
		if err := p.advance(); err != nil {
			return algebra.GraphTarget{}, err
		}
		iri, err := p.resolveTermIRI()
		if err != nil {
			return algebra.GraphTarget{}, err
		}
		return algebra.GraphTarget{Kind: algebra.TargetIRI, IRI: rdf.NewNamedNode(iri)}, nil
	default:
		return algebra.GraphTarget{}, fmt.Errorf("expected DEFAULT or GRAPH, got %q", p.cur.text)
	}
}
