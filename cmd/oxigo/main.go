// Command oxigo is the embeddable RDF store's command-line front end: it
// opens (or creates) a Badger-backed quad store and either drops into an
// interactive SPARQL REPL, runs a single query or update, bulk-loads RDF
// data, serves the SPARQL 1.1 HTTP protocol, or runs the bundled demo.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oxigo",
		Short: "oxigo is an embeddable RDF triple/quad store with a SPARQL 1.1 engine",
	}
	cmd.PersistentFlags().String("db", "./oxigo_data", "path to the Badger data directory")
	cmd.PersistentFlags().Bool("mem", false, "use an ephemeral in-memory store instead of --db")

	cmd.AddCommand(
		newServeCmd(),
		newQueryCmd(),
		newUpdateCmd(),
		newLoadCmd(),
		newReplCmd(),
		newDemoCmd(),
	)
	return cmd
}
