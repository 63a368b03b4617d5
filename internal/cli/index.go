package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vaultlens/vaultlens/internal/engine"
)

func newIndexCmd() *cobra.Command {
	var (
		force          bool
		sampleSize     int
		includeFolders []string
		excludeFolders []string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the vault into the embedding cache and search indices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			stats, err := a.engine.BuildIndex(cmd.Context(), engine.BuildOptions{
				Force:          force,
				SampleSize:     sampleSize,
				IncludeFolders: includeFolders,
				ExcludeFolders: excludeFolders,
				Progress: func(done, total int) {
					fmt.Fprintf(out, "\r  indexing %d/%d", done, total)
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out)

			color.New(color.FgGreen).Fprintf(out, "indexed %d notes in %s\n", stats.TotalDocuments, stats.Duration.Round(time.Millisecond))
			fmt.Fprintf(out, "  model:           %s (dim %d)\n", stats.Model, stats.Dimension)
			fmt.Fprintf(out, "  cache hits:      %d\n", stats.CacheHits)
			fmt.Fprintf(out, "  cache misses:    %d\n", stats.CacheMisses)
			if stats.ParseFailures > 0 {
				color.New(color.FgYellow).Fprintf(out, "  parse failures:  %d\n", stats.ParseFailures)
			}
			if stats.EncodeFailures > 0 {
				color.New(color.FgYellow).Fprintf(out, "  encode failures: %d\n", stats.EncodeFailures)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "discard cached embeddings and re-encode everything")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 0, "index only the first N notes (0 = all)")
	cmd.Flags().StringSliceVar(&includeFolders, "include", nil, "restrict to these vault-relative folders")
	cmd.Flags().StringSliceVar(&excludeFolders, "exclude", nil, "skip these vault-relative folders")
	return cmd
}
