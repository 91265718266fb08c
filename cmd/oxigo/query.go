package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/evaluator"
	"github.com/aleksaelezovic/oxigo/internal/sparqlparser"
	"github.com/aleksaelezovic/oxigo/internal/update"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [sparql]",
		Short: "Run a SPARQL query and print the results",
		Long:  "Run a SPARQL query and print the results. Reads from stdin if no query argument is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			queryString, err := queryArgOrStdin(args)
			if err != nil {
				return err
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			q, err := sparqlparser.Parse(queryString)
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}

			result, err := evaluator.Evaluate(cmd.Context(), st, q)
			if err != nil {
				return fmt.Errorf("evaluation error: %w", err)
			}

			printResult(result)
			return nil
		},
	}
	return cmd
}

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [sparql-update]",
		Short: "Run a SPARQL 1.1 Update request",
		Long:  "Run a SPARQL 1.1 Update request. Reads from stdin if no argument is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			updateString, err := queryArgOrStdin(args)
			if err != nil {
				return err
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			u, err := sparqlparser.ParseUpdate(updateString)
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}

			exec := update.New(st)
			if err := exec.Execute(cmd.Context(), u); err != nil {
				return fmt.Errorf("update error: %w", err)
			}

			fmt.Println("Update applied.")
			return nil
		},
	}
	return cmd
}

func queryArgOrStdin(args []string) (string, error) {
	switch len(args) {
	case 0:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("accepts a single query argument, or none to read from stdin")
	}
}

// printResult renders a Result as a simple aligned table (SELECT), a
// boolean (ASK), or N-Triples (CONSTRUCT/DESCRIBE) on stdout.
func printResult(result *evaluator.Result) {
	switch result.Form {
	case algebra.FormAsk:
		fmt.Println(result.Ask)

	case algebra.FormConstruct, algebra.FormDescribe:
		for _, q := range result.Quads {
			fmt.Printf("%s %s %s .\n", q.Subject, q.Predicate, q.Object)
		}
		fmt.Fprintf(os.Stderr, "\n%d triples\n", len(result.Quads))

	default:
		for i, v := range result.Vars {
			if i > 0 {
				fmt.Print(" | ")
			}
			fmt.Printf("%-20s", v)
		}
		fmt.Println()
		fmt.Println(strings.Repeat("-", 23*max(len(result.Vars), 1)))
		for _, row := range result.Rows {
			for i, v := range result.Vars {
				if i > 0 {
					fmt.Print(" | ")
				}
				term := row[algebra.Variable(v)]
				fmt.Printf("%-20s", formatTerm(term))
			}
			fmt.Println()
		}
		fmt.Fprintf(os.Stderr, "\n%d rows\n", len(result.Rows))
	}
}

func formatTerm(term rdf.Term) string {
	if term == nil {
		return ""
	}
	return term.String()
}
