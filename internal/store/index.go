package store

import (
	"github.com/aleksaelezovic/oxigo/internal/encoding"
	"github.com/aleksaelezovic/oxigo/internal/kv"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// The six quad indexes, keyed by the term order that gives each its name.
// Default-graph quads are stored only in DSPO/DPOS/DOSP (graph omitted,
// since it is always the default graph); named-graph quads are stored
// only in GSPO/GPOS/GOSP (graph is the leading key component). Each quad
// therefore has exactly three index entries, and a pattern with an
// unbound graph scans the default triad and then each registered named
// graph in turn (see scanAllNamedGraphs).

func concatTerms(terms ...encoding.EncodedTerm) []byte {
	out := make([]byte, 0, len(terms)*encoding.EncodedTermSize)
	for _, t := range terms {
		out = append(out, t[:]...)
	}
	return out
}

func dspoKey(q EncodedQuad) []byte { return concatTerms(q.Subject, q.Predicate, q.Object) }
func dposKey(q EncodedQuad) []byte { return concatTerms(q.Predicate, q.Object, q.Subject) }
func doslKey(q EncodedQuad) []byte { return concatTerms(q.Object, q.Subject, q.Predicate) }

func gspoKey(q EncodedQuad) []byte { return concatTerms(q.Graph, q.Subject, q.Predicate, q.Object) }
func gposKey(q EncodedQuad) []byte { return concatTerms(q.Graph, q.Predicate, q.Object, q.Subject) }
func goslKey(q EncodedQuad) []byte { return concatTerms(q.Graph, q.Object, q.Subject, q.Predicate) }

// writeIndexes inserts q into its index set (default-graph triad or
// named-graph triad, chosen by q.Graph).
func writeIndexes(txn kv.Transaction, q EncodedQuad) error {
	if isDefaultGraph(q.Graph) {
		if err := txn.Set(kv.TableDSPO, dspoKey(q), nil); err != nil {
			return err
		}
		if err := txn.Set(kv.TableDPOS, dposKey(q), nil); err != nil {
			return err
		}
		return txn.Set(kv.TableDOSP, doslKey(q), nil)
	}
	if err := txn.Set(kv.TableGSPO, gspoKey(q), nil); err != nil {
		return err
	}
	if err := txn.Set(kv.TableGPOS, gposKey(q), nil); err != nil {
		return err
	}
	return txn.Set(kv.TableGOSP, goslKey(q), nil)
}

func deleteIndexes(txn kv.Transaction, q EncodedQuad) error {
	if isDefaultGraph(q.Graph) {
		if err := txn.Delete(kv.TableDSPO, dspoKey(q)); err != nil {
			return err
		}
		if err := txn.Delete(kv.TableDPOS, dposKey(q)); err != nil {
			return err
		}
		return txn.Delete(kv.TableDOSP, doslKey(q))
	}
	if err := txn.Delete(kv.TableGSPO, gspoKey(q)); err != nil {
		return err
	}
	if err := txn.Delete(kv.TableGPOS, gposKey(q)); err != nil {
		return err
	}
	return txn.Delete(kv.TableGOSP, goslKey(q))
}

// decodeQuadFromDSPOKey reconstructs the encoded terms from a DSPO-order
// key; the other five key orders have their own decode helpers below,
// mirroring the permutation each index applies.
func decodeQuadFromDSPOKey(key []byte) EncodedQuad {
	var s, p, o encoding.EncodedTerm
	copy(s[:], key[0:17])
	copy(p[:], key[17:34])
	copy(o[:], key[34:51])
	return EncodedQuad{Subject: s, Predicate: p, Object: o, Graph: defaultGraphTerm}
}

func decodeQuadFromDPOSKey(key []byte) EncodedQuad {
	var p, o, s encoding.EncodedTerm
	copy(p[:], key[0:17])
	copy(o[:], key[17:34])
	copy(s[:], key[34:51])
	return EncodedQuad{Subject: s, Predicate: p, Object: o, Graph: defaultGraphTerm}
}

func decodeQuadFromDOSPKey(key []byte) EncodedQuad {
	var o, s, p encoding.EncodedTerm
	copy(o[:], key[0:17])
	copy(s[:], key[17:34])
	copy(p[:], key[34:51])
	return EncodedQuad{Subject: s, Predicate: p, Object: o, Graph: defaultGraphTerm}
}

func decodeQuadFromGSPOKey(key []byte) EncodedQuad {
	var g, s, p, o encoding.EncodedTerm
	copy(g[:], key[0:17])
	copy(s[:], key[17:34])
	copy(p[:], key[34:51])
	copy(o[:], key[51:68])
	return EncodedQuad{Subject: s, Predicate: p, Object: o, Graph: g}
}

func decodeQuadFromGPOSKey(key []byte) EncodedQuad {
	var g, p, o, s encoding.EncodedTerm
	copy(g[:], key[0:17])
	copy(p[:], key[17:34])
	copy(o[:], key[34:51])
	copy(s[:], key[51:68])
	return EncodedQuad{Subject: s, Predicate: p, Object: o, Graph: g}
}

func decodeQuadFromGOSPKey(key []byte) EncodedQuad {
	var g, o, s, p encoding.EncodedTerm
	copy(g[:], key[0:17])
	copy(o[:], key[17:34])
	copy(s[:], key[34:51])
	copy(p[:], key[51:68])
	return EncodedQuad{Subject: s, Predicate: p, Object: o, Graph: g}
}

var defaultGraphTerm = func() encoding.EncodedTerm {
	var t encoding.EncodedTerm
	t[0] = byte(rdf.TermTypeDefaultGraph)
	return t
}()
