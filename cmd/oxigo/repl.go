package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/oxigo/internal/evaluator"
	"github.com/aleksaelezovic/oxigo/internal/sparqlparser"
	"github.com/aleksaelezovic/oxigo/internal/store"
	"github.com/aleksaelezovic/oxigo/internal/update"
)

const (
	ps1 = "oxigo> "
	ps2 = "   ... "

	historyFile = ".oxigo_history"
)

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Drop into an interactive SPARQL REPL",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			return runRepl(cmd.Context(), st)
		},
	}
	return cmd
}

func runRepl(ctx context.Context, st *store.QuadStore) error {
	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile); err == nil {
		term.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			term.WriteHistory(f)
			f.Close()
		}
	}()

	exec := update.New(st)

	fmt.Println("oxigo SPARQL REPL. Enter a query or update; a line ending in \"}\" or \";\" runs it. :help for commands.")

	var buf strings.Builder
	prompt := ps1
	for {
		line, err := term.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			buf.Reset()
			prompt = ps1
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		term.AppendHistory(line)

		trimmed := strings.TrimSpace(line)
		if buf.Len() == 0 {
			switch trimmed {
			case ":help":
				printReplHelp()
				continue
			case ":quit", ":exit":
				return nil
			case "":
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteString("\n")

		if !strings.HasSuffix(trimmed, "}") && !strings.HasSuffix(trimmed, ";") {
			prompt = ps2
			continue
		}

		input := buf.String()
		buf.Reset()
		prompt = ps1

		runReplStatement(ctx, st, exec, input)
	}
}

func runReplStatement(ctx context.Context, st *store.QuadStore, exec *update.Executor, input string) {
	upper := strings.ToUpper(strings.TrimSpace(input))
	if strings.HasPrefix(upper, "INSERT") || strings.HasPrefix(upper, "DELETE") ||
		strings.HasPrefix(upper, "LOAD") || strings.HasPrefix(upper, "CLEAR") ||
		strings.HasPrefix(upper, "CREATE") || strings.HasPrefix(upper, "DROP") ||
		strings.HasPrefix(upper, "COPY") || strings.HasPrefix(upper, "MOVE") ||
		strings.HasPrefix(upper, "ADD") || strings.HasPrefix(upper, "WITH") {
		u, err := sparqlparser.ParseUpdate(input)
		if err != nil {
			fmt.Println("Parse error:", err)
			return
		}
		if err := exec.Execute(ctx, u); err != nil {
			fmt.Println("Update error:", err)
			return
		}
		fmt.Println("OK")
		return
	}

	q, err := sparqlparser.Parse(input)
	if err != nil {
		fmt.Println("Parse error:", err)
		return
	}
	result, err := evaluator.Evaluate(ctx, st, q)
	if err != nil {
		fmt.Println("Evaluation error:", err)
		return
	}
	printResult(result)
}

func printReplHelp() {
	fmt.Println(`Commands:
  :help          this help
  :quit / :exit  leave the REPL

Enter a SPARQL query (SELECT/ASK/CONSTRUCT/DESCRIBE) or a SPARQL 1.1
Update request (INSERT/DELETE/LOAD/CLEAR/CREATE/DROP/COPY/MOVE/ADD).
A line ending in "}" or ";" ends the statement and runs it.`)
}
