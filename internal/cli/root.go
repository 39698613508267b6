// Package cli provides the datalink command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"datalink/internal/app"
	"datalink/internal/config"
	"datalink/internal/logger"
)

// Version is set at build time.
var Version = "dev"

type configKey struct{}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "datalink",
		Short: "DataLink database client backend",
		Long: `DataLink manages database connection profiles, runs queries against the
active connection and keeps a history of what was executed.

It serves a JSON HTTP API (serve) and an MCP server for AI agents (mcp).`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "__complete", "version", "format":
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+")")
	flags.String("addr", "", "HTTP listen address")
	flags.String("backend", "", "storage backend (sqlite|memory|remote)")
	flags.String("db", "", "path to the SQLite database")
	flags.String("data-dir", "", "data directory")
	flags.String("secrets", "", "secret store (memory|keychain)")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("log-format", "", "log format (json|console)")
	flags.String("remote-url", "", "record API base URL for the remote backend")
	flags.Uint64("seed", 0, "simulation seed (0 picks a random one)")
	flags.Bool("instant", false, "skip simulated delays")

	_ = rootCmd.RegisterFlagCompletionFunc("backend", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.BackendSQLite, config.BackendMemory, config.BackendRemote}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMCPCommand())
	rootCmd.AddCommand(newFormatCommand())
	rootCmd.AddCommand(newConnectionsCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func getConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return nil
}

// openApp builds the App for a command. Logs go to stderr so stdout stays
// free for command output and the MCP transport.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg := getConfig(cmd.Context())
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if cfg.File != "" {
		log.With().Str("file", cfg.File).Logger().Debug("config loaded")
	}
	return app.New(cfg, log, Version)
}
