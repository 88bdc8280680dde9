package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/mmreality-scraper/pkg/export"
	"github.com/Sternrassler/mmreality-scraper/pkg/runstore"
	"github.com/spf13/cobra"
)

// NewLastCmd creates the last command.
func NewLastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "last [dataset]",
		Short: "Show the stored summary of a run",
		Long: `Last prints the run summary stored in Redis as JSON. Without an argument
it looks up today's dataset.

Examples:
  mmreality-scraper last --redis-addr localhost:6379
  mmreality-scraper last mmreality_dataset_2026-10-14`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLastCmd,
	}

	cmd.Flags().String("redis-addr", "", "Redis address")

	return cmd
}

func runLastCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("redis-addr") {
		cfg.RedisAddr, _ = cmd.Flags().GetString("redis-addr")
	}
	if cfg.RedisAddr == "" {
		return fmt.Errorf("redis address is required (--redis-addr or REDIS_ADDR)")
	}

	dataset := export.DatasetName(cfg.DatasetPrefix, time.Now())
	if len(args) == 1 {
		dataset = args[0]
	}

	rdb := newRedisClient(cfg)
	defer func() { _ = rdb.Close() }()

	summary, err := runstore.NewStore(rdb, cfg.SummaryTTL).Get(cmd.Context(), dataset)
	if err != nil {
		if errors.Is(err, runstore.ErrNotFound) {
			return fmt.Errorf("no run recorded for %s", dataset)
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
