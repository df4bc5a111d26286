package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tjaddison/govbiz-ai-sub002/internal/batch"
	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show health of recently-active batch coordinations",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("batchctl: load config: %w", err)
	}
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("batchctl: connect: %w", err)
	}
	defer pool.Close()

	monitor := &batch.HealthMonitor{
		Coordinations: kvstore.NewPostgresBatchCoordinationStore(pool),
		Batches:       kvstore.NewPostgresProgressStore(pool),
		Now:           time.Now,
	}
	snapshots, err := monitor.Assess(ctx)
	if err != nil {
		return fmt.Errorf("batchctl: assess health: %w", err)
	}
	if len(snapshots) == 0 {
		fmt.Println("no coordinations active in the assessment window")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "COORDINATION\tSTATUS\tPROGRESS\tBATCHES\tFAILED\tSTALLED\tSINCE UPDATE")
	for _, s := range snapshots {
		fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%d/%d\t%d\t%d\t%s\n",
			s.CoordinationID, s.Status, s.ProgressPercentage,
			s.CompletedBatches, s.TotalBatches, s.FailedBatches, s.StalledBatches, s.TimeSinceUpdate.Round(time.Second))
	}
	return w.Flush()
}
