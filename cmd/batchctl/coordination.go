package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
)

var coordinationCmd = &cobra.Command{
	Use:   "coordination",
	Short: "Inspect batch coordination records",
}

var coordinationShowCmd = &cobra.Command{
	Use:   "show [coordination-id]",
	Short: "Print one coordination's full record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoordinationShow,
}

func init() {
	coordinationCmd.AddCommand(coordinationShowCmd)
}

func runCoordinationShow(cmd *cobra.Command, args []string) error {
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

	store := kvstore.NewPostgresBatchCoordinationStore(pool)
	raw, err := store.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("batchctl: get coordination %s: %w", args[0], err)
	}
	var pretty map[string]any
	if err := json.Unmarshal(raw, &pretty); err != nil {
		return fmt.Errorf("batchctl: decode coordination %s: %w", args[0], err)
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
