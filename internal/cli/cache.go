package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the embedding cache",
	}
	cmd.AddCommand(newCacheStatsCmd(), newCacheSweepCmd())
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show embedding-cache counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.engine.CacheStats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rows:       %d\n", stats.TotalRows)
			for model, rows := range stats.RowsPerModel {
				fmt.Fprintf(out, "  %-24s %d\n", model, rows)
			}
			fmt.Fprintf(out, "token rows: %d\n", stats.TokenRows)
			fmt.Fprintf(out, "size:       %d bytes\n", stats.SizeBytes)
			if !stats.LastUpdatedAt.IsZero() {
				fmt.Fprintf(out, "updated:    %s\n", stats.LastUpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newCacheSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove cache rows for notes that no longer exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			removed, err := a.engine.SweepCache(cmd.Context())
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "removed %d orphaned rows\n", removed)
			return nil
		},
	}
}
