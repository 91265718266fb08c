// Package store implements the six-index quad store: encoding terms into
// the internal dictionary, writing/removing quads across the DSPO/DPOS/
// DOSP (default graph) and GSPO/GPOS/GOSP (named graph) indexes, pattern
// matching via longest-bound-prefix index selection, and transactional and
// bulk-load entry points over the internal/kv backend.
package store

import (
	"github.com/aleksaelezovic/oxigo/internal/encoding"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// EncodedQuad is a quad with every term already reduced to its EncodedTerm
// form; this is what the six indexes actually store keys for.
type EncodedQuad struct {
	Subject   encoding.EncodedTerm
	Predicate encoding.EncodedTerm
	Object    encoding.EncodedTerm
	Graph     encoding.EncodedTerm
}

func isDefaultGraph(g encoding.EncodedTerm) bool {
	return g.Tag() == byte(rdf.TermTypeDefaultGraph)
}
