package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vaultlens/vaultlens/internal/engine"
)

func newDuplicatesCmd() *cobra.Command {
	var (
		threshold float64
		minWords  int
	)

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find groups of near-duplicate notes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.engine.BuildIndex(cmd.Context(), engine.BuildOptions{}); err != nil {
				return err
			}

			opts := a.cfg.DedupOptions()
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = threshold
			}
			if cmd.Flags().Changed("min-words") {
				opts.MinWords = minWords
			}

			report := a.engine.FindDuplicates(opts)
			out := cmd.OutOrStdout()

			if len(report.Groups) == 0 {
				color.New(color.FgGreen).Fprintf(out, "no duplicates among %d notes\n", report.TotalAnalyzed)
				return nil
			}

			header := color.New(color.FgCyan, color.Bold)
			keep := color.New(color.FgGreen)
			drop := color.New(color.Faint)
			for i, group := range report.Groups {
				header.Fprintf(out, "group %d  (avg similarity %.3f)\n", i+1, group.AvgSimilarity)
				for _, member := range group.Members {
					if member == group.Representative {
						keep.Fprintf(out, "  keep  %s  (%d words)\n", member.Path, member.WordCount)
					} else {
						drop.Fprintf(out, "  dup   %s  (%d words)\n", member.Path, member.WordCount)
					}
				}
			}

			fmt.Fprintf(out, "\n%d of %d notes are duplicates (%.1f%%), up to %d bytes reclaimable\n",
				report.DuplicateCount, report.TotalAnalyzed,
				report.DuplicateRatio*100, report.PotentialSavingsBytes)
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0.85, "similarity threshold for grouping")
	cmd.Flags().IntVar(&minWords, "min-words", 10, "ignore notes shorter than this many words")
	return cmd
}
