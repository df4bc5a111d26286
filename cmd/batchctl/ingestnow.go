package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tjaddison/govbiz-ai-sub002/internal/csvingest"
)

var ingestNowCmd = &cobra.Command{
	Use:   "ingest-now",
	Short: "Run one CSV acquisition pass immediately, outside the cron schedule",
	RunE:  runIngestNow,
}

func runIngestNow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("batchctl: load config: %w", err)
	}

	ingestor := &csvingest.Ingestor{
		Downloader: csvingest.NewDownloader(cfg.CSVIngest),
		Producer:   newProducer(cfg.Queue),
		Topic:      cfg.CSVIngest.QueueTopic,
	}

	start := time.Now()
	stats, err := ingestor.Run(ctx)
	if err != nil {
		return fmt.Errorf("batchctl: csv refresh: %w", err)
	}
	fmt.Printf("csv refresh complete in %s: %d rows, %d duplicates, %d batches emitted\n",
		time.Since(start).Round(time.Millisecond), stats.TotalRows, stats.DuplicateRows, stats.EmittedBatches)
	return nil
}
