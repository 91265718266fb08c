package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/oxigo/internal/store"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Bulk-load an RDF file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			graphIRI, _ := cmd.Flags().GetString("graph")

			path := args[0]
			if format == "" {
				format = rdf.ContentTypeFromExtension(path)
			}
			parser, err := rdf.NewParser(format)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			quads, err := parser.Parse(f)
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}

			var graph rdf.Term = rdf.NewDefaultGraph()
			if graphIRI != "" {
				graph = rdf.NewNamedNode(graphIRI)
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			start := time.Now()
			i := 0
			n, err := st.BulkLoad(cmd.Context(), func() (*rdf.Quad, error) {
				if i >= len(quads) {
					return nil, io.EOF
				}
				q := quads[i]
				i++
				if q.Graph == nil || q.Graph.Equals(rdf.NewDefaultGraph()) {
					q = rdf.NewQuad(q.Subject, q.Predicate, q.Object, graph)
				}
				return q, nil
			}, store.DefaultBulkLoadOptions())
			if err != nil {
				return fmt.Errorf("load error: %w", err)
			}

			fmt.Printf("Loaded %d quads in %v\n", n, time.Since(start))
			return nil
		},
	}
	cmd.Flags().String("format", "", "RDF content type (application/n-triples, application/n-quads, text/turtle, application/trig, application/ld+json, application/rdf+xml); guessed from the file extension if omitted")
	cmd.Flags().String("graph", "", "named graph IRI to load triples into (default graph otherwise)")
	return cmd
}
