package store

import (
	"context"

	"github.com/aleksaelezovic/oxigo/internal/encoding"
	"github.com/aleksaelezovic/oxigo/internal/kv"
	"github.com/aleksaelezovic/oxigo/internal/oxierr"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// QuadStore is the transactional, six-index quad store: term encoding and
// dictionary management, index maintenance, pattern matching, and
// snapshot-isolated transactions, all layered over an internal/kv.Storage.
type QuadStore struct {
	backend kv.Storage
	enc     *encoding.TermEncoder
	dec     *encoding.TermDecoder
	dict    dictionary
}

// Open wraps an already-opened kv.Storage backend as a QuadStore.
func Open(backend kv.Storage) *QuadStore {
	return &QuadStore{
		backend: backend,
		enc:     encoding.NewTermEncoder(),
		dec:     encoding.NewTermDecoder(),
	}
}

func (s *QuadStore) Close() error { return s.backend.Close() }

// encodeTerm encodes term and, if it requires a dictionary entry, writes
// (ref-counts) that entry within txn.
func (s *QuadStore) encodeTerm(txn kv.Transaction, term rdf.Term) (encoding.EncodedTerm, error) {
	encoded, str, err := s.enc.EncodeTerm(term)
	if err != nil {
		return encoded, oxierr.InvalidInput("encoding term %v", err)
	}
	if str != nil {
		if err := s.dict.put(txn, encoded, *str); err != nil {
			return encoded, err
		}
	}
	return encoded, nil
}

func (s *QuadStore) encodeQuad(txn kv.Transaction, q *rdf.Quad) (EncodedQuad, error) {
	var eq EncodedQuad
	var err error
	if eq.Subject, err = s.encodeTerm(txn, q.Subject); err != nil {
		return eq, err
	}
	if eq.Predicate, err = s.encodeTerm(txn, q.Predicate); err != nil {
		return eq, err
	}
	if eq.Object, err = s.encodeTerm(txn, q.Object); err != nil {
		return eq, err
	}
	graph := q.Graph
	if graph == nil {
		graph = rdf.NewDefaultGraph()
	}
	if eq.Graph, err = s.encodeTerm(txn, graph); err != nil {
		return eq, err
	}
	return eq, nil
}

// Insert adds q to the store within its own transaction. Returns whether
// the quad was newly inserted (false if it was already present).
func (s *QuadStore) Insert(ctx context.Context, q *rdf.Quad) (bool, error) {
	var inserted bool
	err := s.backend.Update(ctx, func(txn kv.Transaction) error {
		var err error
		inserted, err = s.insertTxn(txn, q)
		return err
	})
	return inserted, err
}

func (s *QuadStore) insertTxn(txn kv.Transaction, q *rdf.Quad) (bool, error) {
	eq, err := s.encodeQuad(txn, q)
	if err != nil {
		return false, err
	}
	exists, err := s.containsEncoded(txn, eq)
	if err != nil {
		return false, err
	}
	if exists {
		// The dictionary refs were already bumped by encodeQuad; undo them
		// since this quad contributes no new reference.
		s.releaseQuadTerms(txn, eq)
		return false, nil
	}
	if err := writeIndexes(txn, eq); err != nil {
		return false, err
	}
	if !isDefaultGraph(eq.Graph) {
		if err := txn.Set(kv.TableGraphs, eq.Graph.Bytes(), nil); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *QuadStore) releaseQuadTerms(txn kv.Transaction, eq EncodedQuad) {
	_ = s.dict.release(txn, eq.Subject)
	_ = s.dict.release(txn, eq.Predicate)
	_ = s.dict.release(txn, eq.Object)
	_ = s.dict.release(txn, eq.Graph)
}

// Remove deletes q from the store. Returns whether it was present.
func (s *QuadStore) Remove(ctx context.Context, q *rdf.Quad) (bool, error) {
	var removed bool
	err := s.backend.Update(ctx, func(txn kv.Transaction) error {
		var err error
		removed, err = s.removeTxn(txn, q)
		return err
	})
	return removed, err
}

func (s *QuadStore) removeTxn(txn kv.Transaction, q *rdf.Quad) (bool, error) {
	// Encoding for delete must not create new dictionary refs, so encode
	// without writing: EncodeTerm is pure, only s.dict.put is stateful.
	eq, str, err := s.encodeQuadPure(q)
	if err != nil {
		return false, err
	}
	exists, err := s.containsEncoded(txn, eq)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	if err := deleteIndexes(txn, eq); err != nil {
		return false, err
	}
	for i, term := range []encoding.EncodedTerm{eq.Subject, eq.Predicate, eq.Object, eq.Graph} {
		if str[i] != nil {
			if err := s.dict.release(txn, term); err != nil {
				return false, err
			}
		}
	}
	if !isDefaultGraph(eq.Graph) {
		stillUsed, err := s.graphHasQuads(txn, eq.Graph)
		if err != nil {
			return false, err
		}
		if !stillUsed {
			_ = txn.Delete(kv.TableGraphs, eq.Graph.Bytes())
		}
	}
	return true, nil
}

// encodeQuadPure encodes each term without touching the dictionary; str[i]
// is non-nil when that term would need a dictionary entry.
func (s *QuadStore) encodeQuadPure(q *rdf.Quad) (EncodedQuad, [4]*string, error) {
	var eq EncodedQuad
	var strs [4]*string
	var err error
	terms := []rdf.Term{q.Subject, q.Predicate, q.Object, q.Graph}
	if terms[3] == nil {
		terms[3] = rdf.NewDefaultGraph()
	}
	encodedSlots := []*encoding.EncodedTerm{&eq.Subject, &eq.Predicate, &eq.Object, &eq.Graph}
	for i, term := range terms {
		*encodedSlots[i], strs[i], err = s.enc.EncodeTerm(term)
		if err != nil {
			return eq, strs, oxierr.InvalidInput("encoding term %v", err)
		}
	}
	return eq, strs, nil
}

func (s *QuadStore) containsEncoded(txn kv.Transaction, eq EncodedQuad) (bool, error) {
	if isDefaultGraph(eq.Graph) {
		return txn.Has(kv.TableDSPO, dspoKey(eq))
	}
	return txn.Has(kv.TableGSPO, gspoKey(eq))
}

func (s *QuadStore) graphHasQuads(txn kv.Transaction, graph encoding.EncodedTerm) (bool, error) {
	it := txn.Iterator(kv.TableGSPO, graph.Bytes(), false)
	defer it.Close()
	return it.Valid(), nil
}

// Contains reports whether q is present in the store.
func (s *QuadStore) Contains(ctx context.Context, q *rdf.Quad) (bool, error) {
	var found bool
	err := s.backend.View(ctx, func(txn kv.Transaction) error {
		eq, _, err := s.encodeQuadPure(q)
		if err != nil {
			return err
		}
		found, err = s.containsEncoded(txn, eq)
		return err
	})
	return found, err
}

// Len returns the total number of quads across all graphs.
func (s *QuadStore) Len(ctx context.Context) (int64, error) {
	var count int64
	err := s.backend.View(ctx, func(txn kv.Transaction) error {
		count = 0
		it := txn.Iterator(kv.TableDSPO, nil, false)
		for ; it.Valid(); it.Next() {
			count++
		}
		it.Close()
		it = txn.Iterator(kv.TableGSPO, nil, false)
		for ; it.Valid(); it.Next() {
			count++
		}
		it.Close()
		return nil
	})
	return count, err
}

func (s *QuadStore) IsEmpty(ctx context.Context) (bool, error) {
	n, err := s.Len(ctx)
	return n == 0, err
}

// Graphs returns the named graphs currently in use (the default graph is
// never listed; it always exists implicitly).
func (s *QuadStore) Graphs(ctx context.Context) ([]rdf.Term, error) {
	var out []rdf.Term
	err := s.backend.View(ctx, func(txn kv.Transaction) error {
		it := txn.Iterator(kv.TableGraphs, nil, false)
		defer it.Close()
		for ; it.Valid(); it.Next() {
			var g encoding.EncodedTerm
			copy(g[:], it.Key())
			term, err := s.decodeTerm(txn, g)
			if err != nil {
				return err
			}
			out = append(out, term)
		}
		return nil
	})
	return out, err
}

func (s *QuadStore) decodeTerm(txn kv.Transaction, term encoding.EncodedTerm) (rdf.Term, error) {
	str, ok, err := s.dict.lookup(txn, term)
	if err != nil {
		return nil, err
	}
	if ok {
		return s.dec.DecodeTerm(term, &str)
	}
	return s.dec.DecodeTerm(term, nil)
}

// Transaction runs fn within a single read-write transaction; all of fn's
// Insert/Remove calls (via the passed *QuadStoreTxn) commit atomically.
func (s *QuadStore) Transaction(ctx context.Context, fn func(*QuadStoreTxn) error) error {
	return s.backend.Update(ctx, func(txn kv.Transaction) error {
		return fn(&QuadStoreTxn{store: s, txn: txn})
	})
}

// QuadStoreTxn exposes Insert/Remove/Contains against a live transaction
// for use inside Transaction's callback (e.g. SPARQL UPDATE execution).
type QuadStoreTxn struct {
	store *QuadStore
	txn   kv.Transaction
}

func (t *QuadStoreTxn) Insert(q *rdf.Quad) (bool, error) { return t.store.insertTxn(t.txn, q) }
func (t *QuadStoreTxn) Remove(q *rdf.Quad) (bool, error) { return t.store.removeTxn(t.txn, q) }
func (t *QuadStoreTxn) Contains(q *rdf.Quad) (bool, error) {
	eq, _, err := t.store.encodeQuadPure(q)
	if err != nil {
		return false, err
	}
	return t.store.containsEncoded(t.txn, eq)
}

// Clear removes every quad in graph, or every quad in every graph if
// graph is nil (SPARQL UPDATE's CLEAR ALL).
func (t *QuadStoreTxn) Clear(graph rdf.Term) error {
	if graph == nil {
		for _, table := range []kv.Table{kv.TableDSPO, kv.TableDPOS, kv.TableDOSP,
			kv.TableGSPO, kv.TableGPOS, kv.TableGOSP, kv.TableGraphs, kv.TableID2Str} {
			if err := clearTable(t.txn, table); err != nil {
				return err
			}
		}
		return nil
	}
	eq, _, err := t.store.enc.EncodeTerm(graph)
	if err != nil {
		return oxierr.InvalidInput("encoding term %v", err)
	}
	table, prefix, decode := kv.TableGSPO, eq.Bytes(), decodeQuadFromGSPOKey
	if isDefaultGraph(eq) {
		table, prefix, decode = kv.TableDSPO, nil, decodeQuadFromDSPOKey
	}
	it := t.txn.Iterator(table, prefix, false)
	defer it.Close()
	var keys [][]byte
	for ; it.Valid(); it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	for _, key := range keys {
		q := decode(key)
		if err := deleteIndexes(t.txn, q); err != nil {
			return err
		}
		t.store.releaseQuadTerms(t.txn, q)
	}
	return t.txn.Delete(kv.TableGraphs, eq.Bytes())
}

func clearTable(txn kv.Transaction, table kv.Table) error {
	it := txn.Iterator(table, nil, false)
	var keys [][]byte
	for ; it.Valid(); it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	it.Close()
	for _, key := range keys {
		if err := txn.Delete(table, key); err != nil {
			return err
		}
	}
	return nil
}
