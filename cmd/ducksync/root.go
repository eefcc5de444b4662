package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// execute runs the CLI and returns the process exit code.
func execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "ducksync",
		Short:         "Transparent result cache for compute-billed warehouses",
		Long:          "ducksync keeps query results from a remote warehouse in a local DuckDB catalog and serves repeat queries from there.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to an optional .env file")

	rootCmd.AddCommand(newServeCmd(&envFile))
	rootCmd.AddCommand(newRefreshCmd(&envFile))
	rootCmd.AddCommand(newCleanupCmd(&envFile))
	return rootCmd
}
