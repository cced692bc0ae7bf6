package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/inspection-sync/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "inspectctl",
		Short: "Operator tooling for the inspection sync service",
		Long: `inspectctl runs maintenance tasks against the same store the API uses:
schema migration, sync record retention, auto-routing, due-unit reports
and deficiency ledger exports.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to config.yaml (default $CONFIG_PATH or ./config.yaml)")

	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.PruneSyncsCmd())
	rootCmd.AddCommand(cli.AutoRouteCmd())
	rootCmd.AddCommand(cli.DueUnitsCmd())
	rootCmd.AddCommand(cli.ExportDeficienciesCmd())
	rootCmd.AddCommand(cli.InspectorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
