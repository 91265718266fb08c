// Package update executes SPARQL 1.1 Update requests (INSERT DATA, DELETE
// DATA, DELETE/INSERT WHERE, LOAD, CLEAR, CREATE, DROP, COPY, MOVE, ADD)
// against an internal/store.QuadStore.
package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/evaluator"
	"github.com/aleksaelezovic/oxigo/internal/oxierr"
	"github.com/aleksaelezovic/oxigo/internal/store"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// HTTPClient is the subset of *http.Client that LOAD needs; a field of
// this type on Executor lets callers inject a timeout or mock transport.
type HTTPClient interface {
	Get(url string) (*http.Response, error)
}

// Executor runs Update requests against a store. Each UpdateOperation
// executes in its own store.Transaction, matching the SPARQL 1.1 Protocol's
// per-operation (not per-request) atomicity guarantee.
type Executor struct {
	Store  *store.QuadStore
	Client HTTPClient
}

// New creates an Executor with a default 30s-timeout HTTP client for LOAD.
func New(st *store.QuadStore) *Executor {
	return &Executor{Store: st, Client: &http.Client{Timeout: 30 * time.Second}}
}

// Execute runs every operation in u sequentially. A failing operation
// aborts the whole request unless it is LOAD SILENT (or any operation
// marked Silent), in which case its error is swallowed and execution
// continues with the next statement.
func (e *Executor) Execute(ctx context.Context, u *algebra.Update) error {
	for i, op := range u.Operations {
		if err := e.executeOne(ctx, op); err != nil {
			if op.Silent {
				continue
			}
			return oxierr.Evaluation("update statement %d: %v", i, err)
		}
	}
	return nil
}

func (e *Executor) executeOne(ctx context.Context, op algebra.UpdateOperation) error {
	switch op.Op {
	case algebra.OpInsertData:
		return e.insertData(ctx, op.Data)
	case algebra.OpDeleteData:
		return e.deleteData(ctx, op.Data)
	case algebra.OpDeleteInsert:
		return e.deleteInsertWhere(ctx, op)
	case algebra.OpLoad:
		return e.load(ctx, op)
	case algebra.OpClear:
		return e.clear(ctx, op.Target)
	case algebra.OpCreate:
		return e.create(ctx, op.Target)
	case algebra.OpDrop:
		return e.clear(ctx, op.Target)
	case algebra.OpCopy:
		return e.copyGraph(ctx, op.From, op.To, true)
	case algebra.OpMove:
		return e.moveGraph(ctx, op.From, op.To)
	case algebra.OpAdd:
		return e.copyGraph(ctx, op.From, op.To, false)
	default:
		return oxierr.Evaluation("unknown update operation %v", op.Op)
	}
}

func (e *Executor) insertData(ctx context.Context, blocks []algebra.QuadData) error {
	return e.Store.Transaction(ctx, func(txn *store.QuadStoreTxn) error {
		for _, block := range blocks {
			graph := block.Graph
			if graph == nil {
				graph = rdf.NewDefaultGraph()
			}
			for _, tp := range block.Triples {
				q := rdf.NewQuad(tp.Subject.Term, tp.Predicate.Term, tp.Object.Term, graph)
				if _, err := txn.Insert(q); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (e *Executor) deleteData(ctx context.Context, blocks []algebra.QuadData) error {
	return e.Store.Transaction(ctx, func(txn *store.QuadStoreTxn) error {
		for _, block := range blocks {
			graph := block.Graph
			if graph == nil {
				graph = rdf.NewDefaultGraph()
			}
			for _, tp := range block.Triples {
				q := rdf.NewQuad(tp.Subject.Term, tp.Predicate.Term, tp.Object.Term, graph)
				if _, err := txn.Remove(q); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// deleteInsertWhere evaluates op.Where as a SELECT to collect bindings,
// instantiates the DELETE and INSERT templates against every binding, then
// removes then inserts the resulting quads in one transaction. The
// evaluation runs before the transaction opens, matching SPARQL's
// "evaluate WHERE once, against the dataset as it was before this update"
// semantics.
func (e *Executor) deleteInsertWhere(ctx context.Context, op algebra.UpdateOperation) error {
	var rows []evaluator.Binding
	if op.Where != nil {
		result, err := evaluator.Evaluate(ctx, e.Store, &algebra.Query{Form: algebra.FormSelect, Root: op.Where})
		if err != nil {
			return err
		}
		rows = result.Rows
	} else {
		rows = []evaluator.Binding{{}}
	}

	toDelete := instantiateTemplate(op.DeleteTemplate, rows)
	toInsert := instantiateTemplate(op.InsertTemplate, rows)

	return e.Store.Transaction(ctx, func(txn *store.QuadStoreTxn) error {
		for _, q := range toDelete {
			if _, err := txn.Remove(q); err != nil {
				return err
			}
		}
		for _, q := range toInsert {
			if _, err := txn.Insert(q); err != nil {
				return err
			}
		}
		return nil
	})
}

// instantiateTemplate binds template against every row, dropping patterns
// whose variables aren't fully bound in that row and deduping by lexical
// form.
func instantiateTemplate(template []algebra.TriplePattern, rows []evaluator.Binding) []*rdf.Quad {
	seen := map[string]bool{}
	var out []*rdf.Quad
	for _, row := range rows {
		for _, tp := range template {
			s, ok1 := resolveTemplateTerm(tp.Subject, row)
			p, ok2 := resolveTemplateTerm(tp.Predicate, row)
			o, ok3 := resolveTemplateTerm(tp.Object, row)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			q := rdf.NewQuad(s, p, o, rdf.NewDefaultGraph())
			key := q.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, q)
		}
	}
	return out
}

func resolveTemplateTerm(t algebra.TermOrVariable, row evaluator.Binding) (rdf.Term, bool) {
	if t.IsVariable() {
		v, ok := row[t.Var]
		return v, ok
	}
	return t.Term, true
}

// load fetches LoadSource over HTTP, parses it by its Content-Type (or a
// format guessed from the URL extension if the server omits it), and bulk
// inserts the resulting quads into the target graph.
func (e *Executor) load(ctx context.Context, op algebra.UpdateOperation) error {
	resp, err := e.Client.Get(op.LoadSource)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return oxierr.Evaluation("LOAD %s: HTTP %d", op.LoadSource, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = rdf.ContentTypeFromExtension(op.LoadSource)
	}
	parser, err := rdf.NewParser(contentType)
	if err != nil {
		return err
	}
	quads, err := parser.Parse(resp.Body)
	if err != nil {
		return err
	}

	graph := rdf.Term(rdf.NewDefaultGraph())
	if op.LoadInto != nil {
		graph = op.LoadInto.IRI
	}

	i := 0
	_, err = e.Store.BulkLoad(ctx, func() (*rdf.Quad, error) {
		if i >= len(quads) {
			return nil, io.EOF
		}
		q := quads[i]
		i++
		return rdf.NewQuad(q.Subject, q.Predicate, q.Object, graph), nil
	}, store.DefaultBulkLoadOptions())
	return err
}

func (e *Executor) clear(ctx context.Context, target algebra.GraphTarget) error {
	return e.Store.Transaction(ctx, func(txn *store.QuadStoreTxn) error {
		switch target.Kind {
		case algebra.TargetDefault:
			return txn.Clear(rdf.NewDefaultGraph())
		case algebra.TargetIRI:
			return txn.Clear(target.IRI)
		case algebra.TargetAll:
			return txn.Clear(nil)
		case algebra.TargetNamed:
			graphs, err := e.Store.Graphs(ctx)
			if err != nil {
				return err
			}
			for _, g := range graphs {
				if err := txn.Clear(g); err != nil {
					return err
				}
			}
			return nil
		default:
			return fmt.Errorf("unsupported graph target kind %v", target.Kind)
		}
	})
}

// create is a no-op beyond validating the target: the store has no
// notion of an empty named graph distinct from "no quads reference this
// graph", so CREATE GRAPH succeeds unconditionally (CREATE SILENT and
// plain CREATE behave identically here).
func (e *Executor) create(_ context.Context, target algebra.GraphTarget) error {
	if target.Kind != algebra.TargetIRI {
		return fmt.Errorf("CREATE requires a GRAPH <iri> target")
	}
	return nil
}

func (e *Executor) copyGraph(ctx context.Context, from, to algebra.GraphTarget, clearDestFirst bool) error {
	fromGraph := graphTermOf(from)
	toGraph := graphTermOf(to)

	var quads []*rdf.Quad
	err := e.Store.Match(ctx, store.Pattern{Graph: fromGraph}, func(q *rdf.Quad) error {
		quads = append(quads, q)
		return nil
	})
	if err != nil {
		return err
	}

	return e.Store.Transaction(ctx, func(txn *store.QuadStoreTxn) error {
		if clearDestFirst {
			if err := txn.Clear(toGraph); err != nil {
				return err
			}
		}
		for _, q := range quads {
			if _, err := txn.Insert(rdf.NewQuad(q.Subject, q.Predicate, q.Object, toGraph)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Executor) moveGraph(ctx context.Context, from, to algebra.GraphTarget) error {
	if err := e.copyGraph(ctx, from, to, true); err != nil {
		return err
	}
	return e.clear(ctx, from)
}

func graphTermOf(target algebra.GraphTarget) rdf.Term {
	if target.Kind == algebra.TargetIRI {
		return target.IRI
	}
	return rdf.NewDefaultGraph()
}
