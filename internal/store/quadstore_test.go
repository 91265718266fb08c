package store

import (
	"context"
	"testing"

	"github.com/aleksaelezovic/oxigo/internal/kv"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

func TestInsertContainsRemove(t *testing.T) {
	ctx := context.Background()
	s := Open(kv.OpenMemory())
	defer s.Close()

	q := rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/alice"),
		rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name"),
		rdf.NewLiteral("Alice"),
		rdf.NewDefaultGraph(),
	)

	inserted, err := s.Insert(ctx, q)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !inserted {
		t.Fatal("expected first insert to report true")
	}

	inserted, err = s.Insert(ctx, q)
	if err != nil {
		t.Fatalf("insert (duplicate): %v", err)
	}
	if inserted {
		t.Fatal("expected duplicate insert to report false")
	}

	ok, err := s.Contains(ctx, q)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !ok {
		t.Fatal("expected store to contain the inserted quad")
	}

	removed, err := s.Remove(ctx, q)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Fatal("expected remove to report true")
	}

	ok, err = s.Contains(ctx, q)
	if err != nil {
		t.Fatalf("contains after remove: %v", err)
	}
	if ok {
		t.Fatal("expected store not to contain the removed quad")
	}
}

func TestMatchAcrossIndexes(t *testing.T) {
	ctx := context.Background()
	s := Open(kv.OpenMemory())
	defer s.Close()

	name := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
	g1 := rdf.NewNamedNode("http://example.org/graph1")

	quads := []*rdf.Quad{
		rdf.NewQuad(rdf.NewNamedNode("http://example.org/alice"), name, rdf.NewLiteral("Alice"), rdf.NewDefaultGraph()),
		rdf.NewQuad(rdf.NewNamedNode("http://example.org/bob"), name, rdf.NewLiteral("Bob"), rdf.NewDefaultGraph()),
		rdf.NewQuad(rdf.NewNamedNode("http://example.org/carol"), name, rdf.NewLiteral("Carol"), g1),
	}
	for _, q := range quads {
		if _, err := s.Insert(ctx, q); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	// Bound predicate, graph fixed to the default graph: matches only the
	// default-graph pair.
	var defaultMatches int
	err := s.Match(ctx, Pattern{Predicate: name, Graph: rdf.NewDefaultGraph()}, func(*rdf.Quad) error {
		defaultMatches++
		return nil
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if defaultMatches != 2 {
		t.Fatalf("expected 2 default-graph matches, got %d", defaultMatches)
	}

	var namedMatches int
	err = s.Match(ctx, Pattern{Predicate: name, Graph: g1}, func(*rdf.Quad) error {
		namedMatches++
		return nil
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if namedMatches != 1 {
		t.Fatalf("expected 1 named-graph match, got %d", namedMatches)
	}

	// Unbound graph matches every graph.
	var allMatches int
	err = s.Match(ctx, Pattern{Predicate: name}, func(*rdf.Quad) error {
		allMatches++
		return nil
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if allMatches != 3 {
		t.Fatalf("expected 3 total matches, got %d", allMatches)
	}
}

func TestLenTracksInsertAndRemove(t *testing.T) {
	ctx := context.Background()
	s := Open(kv.OpenMemory())
	defer s.Close()

	q1 := rdf.NewQuad(rdf.NewNamedNode("http://a"), rdf.NewNamedNode("http://p"), rdf.NewLiteral("1"), rdf.NewDefaultGraph())
	q2 := rdf.NewQuad(rdf.NewNamedNode("http://a"), rdf.NewNamedNode("http://p"), rdf.NewLiteral("2"), rdf.NewDefaultGraph())

	if _, err := s.Insert(ctx, q1); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Insert(ctx, q2); err != nil {
		t.Fatalf("insert: %v", err)
	}

	n, err := s.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected len 2, got %d", n)
	}

	if _, err := s.Remove(ctx, q1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	n, err = s.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected len 1 after remove, got %d", n)
	}
}
