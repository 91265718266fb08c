package main

import (
	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/oxigo/internal/kv"
	"github.com/aleksaelezovic/oxigo/internal/store"
)

// openStore opens the Badger-backed store at --db, or an ephemeral
// in-memory one when --mem is set.
func openStore(cmd *cobra.Command) (*store.QuadStore, error) {
	mem, _ := cmd.Flags().GetBool("mem")
	if mem {
		return store.Open(kv.OpenMemory()), nil
	}
	dir, _ := cmd.Flags().GetString("db")
	backend, err := kv.OpenBadger(dir, false)
	if err != nil {
		return nil, err
	}
	return store.Open(backend), nil
}
