// Package evaluator turns a planned internal/algebra tree into a
// Volcano-style iterator over variable bindings, evaluating SPARQL
// expressions, aggregates, property paths, and solution modifiers against
// an internal/store.QuadStore.
package evaluator

import (
	"sort"
	"strings"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// Binding is a partial map from query variable to RDF term. Terms are
// kept decoded (rather than as raw EncodedTerm) so expression evaluation
// never has to re-enter the dictionary mid-computation.
type Binding map[algebra.Variable]rdf.Term

// Clone returns a shallow copy.
func (b Binding) Clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Merge returns a new binding combining b and other; returns ok=false if
// they disagree on any shared variable (incompatible per SPARQL join
// semantics).
func (b Binding) Merge(other Binding) (Binding, bool) {
	out := b.Clone()
	for k, v := range other {
		if existing, ok := out[k]; ok {
			if !termEquals(existing, v) {
				return nil, false
			}
			continue
		}
		out[k] = v
	}
	return out, true
}

// Compatible reports whether b and other agree on every variable they
// share, without constructing the merged binding.
func (b Binding) Compatible(other Binding) bool {
	for k, v := range other {
		if existing, ok := b[k]; ok && !termEquals(existing, v) {
			return false
		}
	}
	return true
}

func termEquals(a, b rdf.Term) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// key renders a binding as a canonical string for use as a DISTINCT/hash-
// join map key; variables are sorted so equal bindings always produce
// equal keys regardless of map iteration order.
func (b Binding) key() string {
	vars := make([]string, 0, len(b))
	for v := range b {
		vars = append(vars, string(v))
	}
	sort.Strings(vars)
	var sb strings.Builder
	for _, v := range vars {
		sb.WriteString(v)
		sb.WriteByte('=')
		sb.WriteString(b[algebra.Variable(v)].String())
		sb.WriteByte('\x1f')
	}
	return sb.String()
}
