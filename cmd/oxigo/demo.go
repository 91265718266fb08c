package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/oxigo/internal/evaluator"
	"github.com/aleksaelezovic/oxigo/internal/sparqlparser"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Load sample data and run an example query",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			alice := rdf.NewNamedNode("http://example.org/alice")
			bob := rdf.NewNamedNode("http://example.org/bob")
			carol := rdf.NewNamedNode("http://example.org/carol")

			name := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
			age := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/age")
			knows := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows")

			quads := []*rdf.Quad{
				rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), rdf.NewDefaultGraph()),
				rdf.NewQuad(alice, age, rdf.NewIntegerLiteral(30), rdf.NewDefaultGraph()),
				rdf.NewQuad(alice, knows, bob, rdf.NewDefaultGraph()),
				rdf.NewQuad(bob, name, rdf.NewLiteral("Bob"), rdf.NewDefaultGraph()),
				rdf.NewQuad(bob, age, rdf.NewIntegerLiteral(25), rdf.NewDefaultGraph()),
				rdf.NewQuad(bob, knows, carol, rdf.NewDefaultGraph()),
				rdf.NewQuad(carol, name, rdf.NewLiteral("Carol"), rdf.NewDefaultGraph()),
				rdf.NewQuad(carol, age, rdf.NewIntegerLiteral(28), rdf.NewDefaultGraph()),
			}

			fmt.Println("Inserting sample data...")
			for _, q := range quads {
				if _, err := st.Insert(cmd.Context(), q); err != nil {
					return fmt.Errorf("insert: %w", err)
				}
				fmt.Printf("  + %s\n", q)
			}

			n, err := st.Len(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("\nTotal quads stored: %d\n\n", n)

			query := `
SELECT ?person ?name ?age WHERE {
  ?person <http://xmlns.com/foaf/0.1/name> ?name .
  ?person <http://xmlns.com/foaf/0.1/age> ?age .
}`
			fmt.Printf("Query:%s\n\n", query)

			q, err := sparqlparser.Parse(query)
			if err != nil {
				return err
			}
			result, err := evaluator.Evaluate(cmd.Context(), st, q)
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		},
	}
	return cmd
}
