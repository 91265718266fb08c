package store

import (
	"context"

	"github.com/aleksaelezovic/oxigo/internal/encoding"
	"github.com/aleksaelezovic/oxigo/internal/kv"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// Pattern is a quad pattern for Match: a nil field is a wildcard.
type Pattern struct {
	Subject   rdf.Term
	Predicate rdf.Term
	Object    rdf.Term
	Graph     rdf.Term // nil = any graph (default graph + every named graph)
}

// QuadHandler receives each matching quad; returning an error stops
// iteration and the error propagates out of Match.
type QuadHandler func(*rdf.Quad) error

// Match iterates every quad satisfying pattern, choosing whichever of the
// six indexes has the longest key prefix determined by pattern's bound
// terms (the same strategy the SPARQL planner needs when scheduling BGP
// triple patterns by selectivity).
func (s *QuadStore) Match(ctx context.Context, pattern Pattern, handle QuadHandler) error {
	return s.backend.View(ctx, func(txn kv.Transaction) error {
		return s.matchTxn(ctx, txn, pattern, handle)
	})
}

func (s *QuadStore) matchTxn(ctx context.Context, txn kv.Transaction, pattern Pattern, handle QuadHandler) error {
	var graphTerm *encoding.EncodedTerm
	if pattern.Graph != nil {
		enc, _, err := s.enc.EncodeTerm(pattern.Graph)
		if err != nil {
			return err
		}
		graphTerm = &enc
	}

	scanDefault := graphTerm == nil || isDefaultGraph(*graphTerm)
	scanNamed := graphTerm == nil || !isDefaultGraph(*graphTerm)

	var subj, pred, obj *encoding.EncodedTerm
	if pattern.Subject != nil {
		enc, _, err := s.enc.EncodeTerm(pattern.Subject)
		if err != nil {
			return err
		}
		subj = &enc
	}
	if pattern.Predicate != nil {
		enc, _, err := s.enc.EncodeTerm(pattern.Predicate)
		if err != nil {
			return err
		}
		pred = &enc
	}
	if pattern.Object != nil {
		enc, _, err := s.enc.EncodeTerm(pattern.Object)
		if err != nil {
			return err
		}
		obj = &enc
	}

	if scanDefault {
		if err := s.scanDefaultGraph(ctx, txn, subj, pred, obj, handle); err != nil {
			return err
		}
	}
	if scanNamed {
		if graphTerm != nil && !isDefaultGraph(*graphTerm) {
			return s.scanOneNamedGraph(ctx, txn, *graphTerm, subj, pred, obj, handle)
		}
		return s.scanAllNamedGraphs(ctx, txn, subj, pred, obj, handle)
	}
	return nil
}

// triadChoice picks among three key orderings (spo/pos/osp) the one
// whose key begins with the longest run of bound terms.
func triadChoice(subj, pred, obj *encoding.EncodedTerm) (order string) {
	switch {
	case subj != nil && pred == nil && obj != nil:
		return "osp"
	case subj != nil:
		return "spo"
	case pred != nil:
		return "pos"
	case obj != nil:
		return "osp"
	default:
		return "spo"
	}
}

func (s *QuadStore) scanDefaultGraph(ctx context.Context, txn kv.Transaction, subj, pred, obj *encoding.EncodedTerm, handle QuadHandler) error {
	var table kv.Table
	var prefix []byte
	var decode func([]byte) EncodedQuad

	switch triadChoice(subj, pred, obj) {
	case "pos":
		table, decode = kv.TableDPOS, decodeQuadFromDPOSKey
		if pred != nil {
			prefix = append(prefix, pred.Bytes()...)
			if obj != nil {
				prefix = append(prefix, obj.Bytes()...)
			}
		}
	case "osp":
		table, decode = kv.TableDOSP, decodeQuadFromDOSPKey
		if obj != nil {
			prefix = append(prefix, obj.Bytes()...)
			if subj != nil {
				prefix = append(prefix, subj.Bytes()...)
			}
		}
	default:
		table, decode = kv.TableDSPO, decodeQuadFromDSPOKey
		if subj != nil {
			prefix = append(prefix, subj.Bytes()...)
			if pred != nil {
				prefix = append(prefix, pred.Bytes()...)
				if obj != nil {
					prefix = append(prefix, obj.Bytes()...)
				}
			}
		}
	}

	it := txn.Iterator(table, prefix, false)
	defer it.Close()
	for ; it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		eq := decode(it.Key())
		if !quadMatches(eq, subj, pred, obj, nil) {
			continue
		}
		q, err := s.decodeQuad(txn, eq)
		if err != nil {
			return err
		}
		if err := handle(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *QuadStore) scanOneNamedGraph(ctx context.Context, txn kv.Transaction, graph encoding.EncodedTerm, subj, pred, obj *encoding.EncodedTerm, handle QuadHandler) error {
	var table kv.Table
	var prefix []byte
	var decode func([]byte) EncodedQuad

	switch triadChoice(subj, pred, obj) {
	case "pos":
		table, decode = kv.TableGPOS, decodeQuadFromGPOSKey
		prefix = append(prefix, graph.Bytes()...)
		if pred != nil {
			prefix = append(prefix, pred.Bytes()...)
			if obj != nil {
				prefix = append(prefix, obj.Bytes()...)
			}
		}
	case "osp":
		table, decode = kv.TableGOSP, decodeQuadFromGOSPKey
		prefix = append(prefix, graph.Bytes()...)
		if obj != nil {
			prefix = append(prefix, obj.Bytes()...)
			if subj != nil {
				prefix = append(prefix, subj.Bytes()...)
			}
		}
	default:
		table, decode = kv.TableGSPO, decodeQuadFromGSPOKey
		prefix = append(prefix, graph.Bytes()...)
		if subj != nil {
			prefix = append(prefix, subj.Bytes()...)
			if pred != nil {
				prefix = append(prefix, pred.Bytes()...)
				if obj != nil {
					prefix = append(prefix, obj.Bytes()...)
				}
			}
		}
	}

	it := txn.Iterator(table, prefix, false)
	defer it.Close()
	for ; it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		eq := decode(it.Key())
		if !quadMatches(eq, subj, pred, obj, &graph) {
			continue
		}
		q, err := s.decodeQuad(txn, eq)
		if err != nil {
			return err
		}
		if err := handle(q); err != nil {
			return err
		}
	}
	return nil
}

// scanAllNamedGraphs walks the registered graphs table and scans each in
// turn; used for a pattern with an unbound graph variable.
func (s *QuadStore) scanAllNamedGraphs(ctx context.Context, txn kv.Transaction, subj, pred, obj *encoding.EncodedTerm, handle QuadHandler) error {
	git := txn.Iterator(kv.TableGraphs, nil, false)
	var graphs []encoding.EncodedTerm
	for ; git.Valid(); git.Next() {
		var g encoding.EncodedTerm
		copy(g[:], git.Key())
		graphs = append(graphs, g)
	}
	git.Close()

	for _, g := range graphs {
		if err := s.scanOneNamedGraph(ctx, txn, g, subj, pred, obj, handle); err != nil {
			return err
		}
	}
	return nil
}

func quadMatches(eq EncodedQuad, subj, pred, obj, graph *encoding.EncodedTerm) bool {
	if subj != nil && eq.Subject != *subj {
		return false
	}
	if pred != nil && eq.Predicate != *pred {
		return false
	}
	if obj != nil && eq.Object != *obj {
		return false
	}
	if graph != nil && eq.Graph != *graph {
		return false
	}
	return true
}

func (s *QuadStore) decodeQuad(txn kv.Transaction, eq EncodedQuad) (*rdf.Quad, error) {
	subj, err := s.decodeTerm(txn, eq.Subject)
	if err != nil {
		return nil, err
	}
	pred, err := s.decodeTerm(txn, eq.Predicate)
	if err != nil {
		return nil, err
	}
	obj, err := s.decodeTerm(txn, eq.Object)
	if err != nil {
		return nil, err
	}
	graph, err := s.decodeTerm(txn, eq.Graph)
	if err != nil {
		return nil, err
	}
	return rdf.NewQuad(subj, pred, obj, graph), nil
}

// Cardinality estimates the number of quads matching pattern without
// materializing them, for the planner's join-ordering heuristic. It walks
// the chosen index's matching prefix and counts, which is exact rather
// than sampled; callers needing an estimate on large stores should cap
// this with a context deadline.
func (s *QuadStore) Cardinality(ctx context.Context, pattern Pattern) (int64, error) {
	var count int64
	err := s.Match(ctx, pattern, func(*rdf.Quad) error {
		count++
		return nil
	})
	return count, err
}
