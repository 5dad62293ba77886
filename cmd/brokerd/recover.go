package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relaybroker/broker/internal/config"
	"github.com/relaybroker/broker/internal/lifecycle"
	"github.com/relaybroker/broker/internal/store"
)

// recoverCmd exposes crash recovery as an explicit operator action, in
// addition to the automatic run at `serve` boot (SPEC_FULL.md §5
// "Supplemented features").
var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Move every ACTIVE session to PAUSED and exit (crash recovery)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgStore, err := config.NewStore()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg := cfgStore.Get()

		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		life := lifecycle.New(db)
		recovered, err := life.Recover()
		if err != nil {
			return fmt.Errorf("recover: %w", err)
		}
		if len(recovered) == 0 {
			fmt.Println("no ACTIVE sessions found")
			return nil
		}
		fmt.Printf("recovered %d session(s): %v\n", len(recovered), recovered)
		return nil
	},
}
