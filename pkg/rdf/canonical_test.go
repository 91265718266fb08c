package rdf

import (
	"strings"
	"testing"
)

func TestSerializeTriplesCanonicalQuotedTriple(t *testing.T) {
	s := NewNamedNode("http://example.org/s")
	p := NewNamedNode("http://example.org/p")
	o := NewLiteral("o")

	qt, err := NewQuotedTriple(s, p, o)
	if err != nil {
		t.Fatalf("NewQuotedTriple: %v", err)
	}

	triples := []*Triple{
		NewTriple(qt, NewNamedNode("http://example.org/asserts"), NewLiteral("true")),
	}

	out := SerializeTriplesCanonical(triples)
	if !strings.Contains(out, "<< <http://example.org/s> <http://example.org/p> \"o\" >>") {
		t.Fatalf("expected canonical output to contain the quoted triple, got %q", out)
	}
}

func TestSerializeTriplesCanonicalReifiedTriple(t *testing.T) {
	s := NewNamedNode("http://example.org/s")
	p := NewNamedNode("http://example.org/p")
	o := NewLiteral("o")
	id := NewNamedNode("http://example.org/claim1")

	qt, err := NewQuotedTriple(s, p, o)
	if err != nil {
		t.Fatalf("NewQuotedTriple: %v", err)
	}
	rt := &ReifiedTriple{Identifier: id, Triple: qt}

	triples := []*Triple{
		NewTriple(rt, NewNamedNode("http://example.org/confidence"), NewDecimalLiteral(0.9)),
	}

	out := SerializeTriplesCanonical(triples)
	if !strings.Contains(out, "~ <http://example.org/claim1>") {
		t.Fatalf("expected canonical output to contain the reifier identifier, got %q", out)
	}
}

func TestSerializeTriplesCanonicalTripleTerm(t *testing.T) {
	tt := &TripleTerm{
		Subject:   NewNamedNode("http://example.org/s"),
		Predicate: NewNamedNode("http://example.org/p"),
		Object:    NewLiteral("o"),
	}
	triples := []*Triple{
		NewTriple(NewNamedNode("http://example.org/x"), NewNamedNode("http://example.org/says"), tt),
	}

	out := SerializeTriplesCanonical(triples)
	if !strings.Contains(out, "<<( <http://example.org/s> <http://example.org/p> \"o\" )>>") {
		t.Fatalf("expected canonical output to contain the triple term, got %q", out)
	}
}
