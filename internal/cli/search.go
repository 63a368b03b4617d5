package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/pkg/types"
)

func newSearchCmd() *cobra.Command {
	var (
		mode      string
		topK      int
		threshold float64
		expand    bool
		rerank    bool
		noIndex   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the vault",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			// The in-memory indices live for one process, so a search
			// command indexes first unless told not to.
			if !noIndex {
				if _, err := a.engine.BuildIndex(cmd.Context(), engine.BuildOptions{}); err != nil {
					return err
				}
			}

			opts := a.cfg.SearchOptions()
			opts.Mode = types.SearchMode(mode)
			if topK > 0 {
				opts.K = topK
			}
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = threshold
			}
			opts.Expand = expand
			opts.Rerank = rerank

			results, err := a.engine.Search(cmd.Context(), query, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				color.New(color.FgYellow).Fprintln(out, "no results")
				return nil
			}

			title := color.New(color.FgCyan, color.Bold)
			dim := color.New(color.Faint)
			for _, r := range results {
				title.Fprintf(out, "%2d. %s", r.Rank, r.Document.Title)
				fmt.Fprintf(out, "  (%.4f, %s)\n", r.Score, r.Mode)
				dim.Fprintf(out, "    %s\n", r.Document.Path)
				if r.OriginalRank != 0 && r.OriginalRank != r.Rank {
					dim.Fprintf(out, "    first-stage rank: %d\n", r.OriginalRank)
				}
				if len(r.MatchedTerms) > 0 {
					dim.Fprintf(out, "    matched: %s\n", strings.Join(r.MatchedTerms, ", "))
				}
				if r.Snippet != "" {
					fmt.Fprintf(out, "    %s\n", r.Snippet)
				}
				if !r.Document.Encoded {
					color.New(color.FgYellow).Fprintln(out, "    (note failed to embed; keyword signals only)")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(types.ModeHybrid), "retrieval mode: semantic, keyword, hybrid, token-level")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of results (default from config)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity score")
	cmd.Flags().BoolVar(&expand, "expand", false, "expand the query with synonyms and a hypothetical document")
	cmd.Flags().BoolVar(&rerank, "rerank", false, "rerank candidates with the cross-encoder")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "skip the implicit indexing pass")
	return cmd
}
