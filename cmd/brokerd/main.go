// Command brokerd is the broker daemon entrypoint: a long-running
// process bridging one messaging transport to per-thread coding
// assistant subprocesses, per spec.md §1/§5.
//
// Grounded on the teacher's cmd/ricochet/main.go (log.SetPrefix,
// signal.Notify(SIGINT, SIGTERM) + context cancellation) and
// cmd/cli/main.go (cobra root command with subcommands), generalized
// from a single binary into serve/migrate/recover subcommands.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "brokerd",
	Short: "Broker daemon bridging a messaging transport to coding-assistant subprocesses",
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(recoverCmd)
}

func main() {
	log.SetPrefix("[brokerd] ")
	log.SetOutput(os.Stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
