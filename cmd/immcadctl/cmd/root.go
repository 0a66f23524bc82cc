// Package cmd contains the immcadctl subcommands.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"immcad-api/config"
)

var (
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "immcadctl",
	Short: "Operational CLI for the IMMCAD API service",
	Long: `immcadctl drives out-of-band operations against an IMMCAD deployment:
triggering ingestion runs and inspecting the per-source checkpoint state
that backs source freshness reporting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		cfg = config.NewConfig()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
