package sparqlparser

import (
	"testing"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
)

func TestParseQueryForms(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantForm algebra.QueryForm
		wantErr  bool
	}{
		{
			name:     "simple select",
			input:    `SELECT ?s WHERE { ?s <http://example.org/p> ?o }`,
			wantForm: algebra.FormSelect,
		},
		{
			name:     "select with optional",
			input:    `SELECT ?s ?o WHERE { ?s <http://example.org/p> ?x OPTIONAL { ?x <http://example.org/q> ?o } }`,
			wantForm: algebra.FormSelect,
		},
		{
			name:     "select with prefix",
			input:    `PREFIX ex: <http://example.org/> SELECT ?s WHERE { ?s ex:p ?o }`,
			wantForm: algebra.FormSelect,
		},
		{
			name:     "ask",
			input:    `ASK { <http://example.org/s> <http://example.org/p> <http://example.org/o> }`,
			wantForm: algebra.FormAsk,
		},
		{
			name:     "construct",
			input:    `CONSTRUCT { ?s <http://example.org/p> ?o } WHERE { ?s <http://example.org/p> ?o }`,
			wantForm: algebra.FormConstruct,
		},
		{
			name:     "select with filter and limit",
			input:    `SELECT ?s WHERE { ?s <http://example.org/age> ?age FILTER(?age > 18) } LIMIT 10`,
			wantForm: algebra.FormSelect,
		},
		{
			name:     "property path plus",
			input:    `SELECT ?x WHERE { <http://a> <http://kn>+ ?x }`,
			wantForm: algebra.FormSelect,
		},
		{
			name:    "unterminated brace",
			input:   `SELECT ?s WHERE { ?s <http://example.org/p> ?o`,
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Form != tt.wantForm {
				t.Fatalf("expected form %v, got %v", tt.wantForm, q.Form)
			}
		})
	}
}

func TestParseUpdateForms(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "insert data",
			input: `INSERT DATA { <http://a> <http://p> "x" }`,
		},
		{
			name:  "delete data",
			input: `DELETE DATA { <http://a> <http://p> "x" }`,
		},
		{
			name:  "delete insert where",
			input: `DELETE { ?s <http://p> ?o } INSERT { ?s <http://p2> ?o } WHERE { ?s <http://p> ?o }`,
		},
		{
			name:  "clear graph",
			input: `CLEAR GRAPH <http://example.org/g1>`,
		},
		{
			name:  "clear default",
			input: `CLEAR DEFAULT`,
		},
		{
			name:    "garbage",
			input:   `NOT A VALID UPDATE`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseUpdate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(u.Operations) == 0 {
				t.Fatalf("expected at least one update operation")
			}
		})
	}
}
