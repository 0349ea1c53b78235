// Package cli provides the command-line interface for dreams.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/dreams-mcp/internal/config"
	"github.com/raphaelgruber/dreams-mcp/internal/dispatch"
	"github.com/raphaelgruber/dreams-mcp/internal/metrics"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string

	// Initialized in PersistentPreRunE
	cfg        config.Config
	collector  *metrics.Collector
	dispatcher *dispatch.Dispatcher
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dreams",
	Short: "Run dreams-intelligence tools without an MCP client",
	Long: `Dreams runs the same tools the dreams-mcp server offers to agents:
semantic code search, file structure analysis and raw embeddings, all
answered by the Python core in DREAMS_CORE_DIR.

Configuration comes from DREAMS_* environment variables and an optional
YAML file (--config or DREAMS_CONFIG).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config for commands that only print static data
		switch cmd.Name() {
		case "version", "help", "tools":
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

		collector = metrics.NewCollector()
		dispatcher = dispatch.NewFromConfig(cfg, collector, logger)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "dreams", Version)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// SIGINT and SIGTERM cancel the running invocation and kill its child process.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $DREAMS_CONFIG)")

	// Add subcommands
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)
}
