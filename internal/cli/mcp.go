package cli

import (
	"github.com/spf13/cobra"

	"github.com/vaultlens/vaultlens/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the retrieval engine over the Model Context Protocol on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			// The MCP server owns the engine and closes it on shutdown.

			srv := mcp.NewServer(a.engine, a.cfg.SearchOptions(), a.logger)
			return srv.Serve(cmd.Context())
		},
	}
}
