package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"immcad-api/internal/ingestion"
	"immcad-api/internal/sources"
)

const (
	cadenceDailyWindow     = 36 * time.Hour
	cadenceWeeklyWindow    = 9 * 24 * time.Hour
	cadenceScheduledWindow = 48 * time.Hour
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Show per-source ingestion checkpoint freshness",
	RunE:  runCheckpoints,
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)
}

func runCheckpoints(cmd *cobra.Command, args []string) error {
	registry, err := sources.LoadRegistry(cfg.SourceRegistryPath)
	if err != nil {
		return fmt.Errorf("loading source registry: %w", err)
	}
	checkpoints := ingestion.NewCheckpointStore(cfg.IngestionCheckpointStatePath, logger)
	snapshot := checkpoints.Snapshot()
	now := time.Now()

	for _, entry := range registry.AllSources() {
		cp, ok := snapshot[entry.SourceID]
		freshness := ingestion.DeriveFreshness(cp, ok, now, cadenceWindow(entry.UpdateCadence))
		age := "never"
		if ok && !cp.LastSuccessAt.IsZero() {
			age = time.Since(cp.LastSuccessAt).Round(time.Minute).String()
		}
		fmt.Printf("%-24s %-8s age=%-10s status=%d\n", entry.SourceID, freshness, age, cp.LastHTTPStatus)
	}

	return nil
}

func cadenceWindow(cadence sources.UpdateCadence) time.Duration {
	switch cadence {
	case sources.CadenceDaily:
		return cadenceDailyWindow
	case sources.CadenceWeekly:
		return cadenceWeeklyWindow
	case sources.CadenceScheduledIncremental:
		return cadenceScheduledWindow
	default:
		return cadenceWeeklyWindow
	}
}
