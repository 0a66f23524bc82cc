package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"immcad-api/internal/ingestion"
	"immcad-api/internal/sources"
)

var ingestCadence string

var ingestCmd = &cobra.Command{
	Use:   "ingest [source-id...]",
	Short: "Run one ingestion pass",
	Long: `Run one ingestion pass against the configured source registry.

With no arguments, every source due under --cadence (or every source, if
--cadence is empty) is considered. One or more source ids restrict the run
to those sources.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestCadence, "cadence", "", "restrict to sources with this update_cadence (daily, weekly, scheduled_incremental)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	registry, err := sources.LoadRegistry(cfg.SourceRegistryPath)
	if err != nil {
		return fmt.Errorf("loading source registry: %w", err)
	}
	policy, err := sources.LoadPolicy(cfg.SourcePolicyPath)
	if err != nil {
		return fmt.Errorf("loading source policy: %w", err)
	}
	fetchPolicy, err := ingestion.LoadFetchPolicy(cfg.FetchPolicyPath, cfg.RequestTimeout.Seconds())
	if err != nil {
		return fmt.Errorf("loading fetch policy: %w", err)
	}
	checkpoints := ingestion.NewCheckpointStore(cfg.IngestionCheckpointStatePath, logger)

	engine := &ingestion.Engine{
		Registry:    registry,
		Policy:      policy,
		FetchPolicy: fetchPolicy,
		Checkpoints: checkpoints,
		Environment: cfg.Environment,
		HTTPClient:  &http.Client{Timeout: cfg.RequestTimeout},
		Logger:      logger,
	}

	report := engine.Run(context.Background(), sources.UpdateCadence(ingestCadence), args)
	if err := checkpoints.Flush(); err != nil {
		return fmt.Errorf("flushing checkpoints: %w", err)
	}

	fmt.Printf("ingestion run complete: %d sources considered\n", report.Total)
	for outcome, count := range report.Counts {
		if count == 0 {
			continue
		}
		fmt.Printf("  %-18s %d\n", outcome, count)
	}
	for _, rec := range report.Sources {
		detail := rec.Error
		if detail == "" {
			detail = rec.PolicyReason
		}
		fmt.Printf("  %-24s %-12s %s\n", rec.SourceID, rec.Outcome, detail)
	}

	return nil
}
