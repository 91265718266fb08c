package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/oxigo/pkg/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the SPARQL 1.1 HTTP protocol endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := server.NewServer(st, addr)
			fmt.Printf("SPARQL endpoint:  http://%s/sparql\n", addr)
			fmt.Printf("Update endpoint:  http://%s/update\n", addr)
			fmt.Printf("Graph store:      http://%s/store\n", addr)
			fmt.Printf("Metrics:          http://%s/metrics\n", addr)
			return srv.Start()
		},
	}
	cmd.Flags().String("addr", "localhost:8080", "address to listen on")
	return cmd
}
