package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vaultlens/vaultlens/internal/config"
	"github.com/vaultlens/vaultlens/internal/store"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	cfgFile   string
	vaultPath string
	logLevel  string
)

// NewRootCmd builds the vaultlens command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vaultlens",
		Short:         "Retrieval engine for an Obsidian Markdown vault",
		Long:          "vaultlens indexes a Markdown vault into a hybrid dense + keyword index\nand answers semantic, keyword, hybrid, and token-level queries over it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: vaultlens.yaml in . or ~/.config/vaultlens)")
	root.PersistentFlags().StringVar(&vaultPath, "vault", "", "vault root directory (overrides config)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newIndexCmd(),
		newSearchCmd(),
		newDuplicatesCmd(),
		newCacheCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if vaultPath != "" {
		cfg.Vault.Path = vaultPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// newLogger builds a stderr logger so stdout stays free for command
// output and the MCP protocol.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vaultlens %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "build time: %s\n", buildTime)
			fmt.Fprintf(cmd.OutOrStdout(), "sqlite driver: %s (%s)\n", store.DriverName, store.BuildMode)
		},
	}
}
