// Command batchctl is an operational CLI over the batch-orchestration
// machinery in internal/batch: inspect coordination health, and trigger a
// CSV-refresh or match-scoring pass on demand without waiting for the next
// cron firing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "batchctl",
	Short: "Operate the opportunity-matching batch pipeline",
	Long: `batchctl inspects and drives the nightly batch machinery: coordination
health, CSV ingestion, and match scoring, all against the same Postgres,
object store, and queue configuration the daemons use.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("CONFIG_FILE"), "path to the YAML config file (defaults to $CONFIG_FILE)")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(coordinationCmd)
	rootCmd.AddCommand(ingestNowCmd)
	rootCmd.AddCommand(matchNowCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
