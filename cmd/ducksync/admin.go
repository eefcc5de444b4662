package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRefreshCmd(envFile *string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh <cache-name>",
		Short: "Refresh a cache without going through the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, _, cleanup, err := bootstrap(ctx, *envFile)
			if err != nil {
				return err
			}
			defer cleanup()

			status := a.Refresher.Refresh(ctx, args[0], force)
			return printJSON(status)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "refresh even when the cache is fresh")
	return cmd
}

func newCleanupCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Run lake maintenance once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, _, _, cleanup, err := bootstrap(ctx, *envFile)
			if err != nil {
				return err
			}
			defer cleanup()

			return printJSON(a.Cleaner.CleanupAll(ctx))
		},
	}
}
