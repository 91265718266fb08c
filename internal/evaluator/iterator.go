package evaluator

import (
	"context"

	"github.com/aleksaelezovic/oxigo/internal/oxierr"
	"github.com/aleksaelezovic/oxigo/internal/store"
)

// BindingIterator is the Volcano-model contract every algebra node
// compiles to: Next advances, Binding returns the current row, Close
// releases resources. Next returns false at end of stream OR on error —
// callers must check Err after a false Next.
type BindingIterator interface {
	Next() bool
	Binding() Binding
	Err() error
	Close()
}

// errIterator is a BindingIterator that immediately reports err.
type errIterator struct{ err error }

func (e *errIterator) Next() bool       { return false }
func (e *errIterator) Binding() Binding { return nil }
func (e *errIterator) Err() error       { return e.err }
func (e *errIterator) Close()           {}

func failIterator(err error) BindingIterator { return &errIterator{err: err} }

// sliceIterator replays a pre-materialized slice of bindings; used by the
// operators that build their whole output before yielding it (OrderBy,
// Group and most of the operators in compile.go).
type sliceIterator struct {
	rows []Binding
	pos  int
}

func newSliceIterator(rows []Binding) *sliceIterator { return &sliceIterator{rows: rows, pos: -1} }

func (s *sliceIterator) Next() bool {
	s.pos++
	return s.pos < len(s.rows)
}
func (s *sliceIterator) Binding() Binding { return s.rows[s.pos] }
func (s *sliceIterator) Err() error       { return nil }
func (s *sliceIterator) Close()           {}

// drain materializes every binding an iterator produces, checking ctx
// between rows for cancellation (the spec's cancellation-token contract).
func drain(ctx context.Context, it BindingIterator) ([]Binding, error) {
	defer it.Close()
	var out []Binding
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return out, oxierr.ErrTimeout
		}
		out = append(out, it.Binding())
	}
	if it.Err() != nil {
		return out, it.Err()
	}
	return out, nil
}

// EvalContext bundles everything iterators need to reach the store and
// evaluate expressions/subplans without a global.
type EvalContext struct {
	Ctx        context.Context
	Store      *store.QuadStore
	NowLiteral func() string // NOW() must be stable across one query evaluation
}
