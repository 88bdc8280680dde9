package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/mmreality-scraper/pkg/client"
	"github.com/Sternrassler/mmreality-scraper/pkg/config"
	"github.com/Sternrassler/mmreality-scraper/pkg/export"
	"github.com/Sternrassler/mmreality-scraper/pkg/pagination"
	"github.com/Sternrassler/mmreality-scraper/pkg/runner"
	"github.com/Sternrassler/mmreality-scraper/pkg/runstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// newRedisClient is swapped in tests.
var newRedisClient = func(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch all listings and export them",
		Long: `Run fetches every page of offers, then writes the spreadsheet and
replaces the dated table. A failing page ends the fetch; the records
collected so far are still exported.

The command exits non-zero only when no record could be fetched because of
an error.

Examples:
  # Reference run: spreadsheet into "scrape mmreality/", table into local PostgreSQL
  mmreality-scraper run

  # Spreadsheet only, first three pages
  mmreality-scraper run --no-table --max-pages 3

  # Table into a SQLite file, run summary into Redis
  mmreality-scraper run --database-url sqlite://listings.db --redis-addr localhost:6379`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().String("endpoint", "", "Offer query endpoint")
	cmd.Flags().StringP("output-dir", "o", "", "Directory for the spreadsheet")
	cmd.Flags().String("dataset-prefix", "", "Prefix of the dataset name")
	cmd.Flags().String("database-url", "", "Table destination (postgres://..., sqlite://<path>)")
	cmd.Flags().Bool("no-table", false, "Skip the table export")
	cmd.Flags().String("redis-addr", "", "Redis address for run summaries (empty disables them)")
	cmd.Flags().IntP("page-size", "l", 0, "Offers per page")
	cmd.Flags().IntP("max-pages", "p", 0, "Stop after this many pages (0 = no limit)")
	cmd.Flags().DurationP("timeout", "t", 0, "Per-request timeout")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file after the run")

	return cmd
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runScrape(ctx, cfg)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}

// applyRunFlags copies explicitly set flags over cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	strs := map[string]*string{
		"endpoint":       &cfg.Endpoint,
		"output-dir":     &cfg.OutputDir,
		"dataset-prefix": &cfg.DatasetPrefix,
		"database-url":   &cfg.DatabaseURL,
		"redis-addr":     &cfg.RedisAddr,
		"metrics-file":   &cfg.MetricsFile,
	}
	for name, dst := range strs {
		if flags.Changed(name) {
			v, err := flags.GetString(name)
			if err != nil {
				return err
			}
			*dst = v
		}
	}

	ints := map[string]*int{
		"page-size": &cfg.PageSize,
		"max-pages": &cfg.MaxPages,
	}
	for name, dst := range ints {
		if flags.Changed(name) {
			v, err := flags.GetInt(name)
			if err != nil {
				return err
			}
			*dst = v
		}
	}

	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = v
	}
	if flags.Changed("no-table") {
		v, err := flags.GetBool("no-table")
		if err != nil {
			return err
		}
		cfg.SkipTable = v
	}

	return nil
}

// runScrape wires the components described by cfg and executes one run.
func runScrape(ctx context.Context, cfg *config.Config) (*runner.Report, error) {
	query, err := cfg.Query()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	pageClient, err := client.New(cfg.ClientConfig())
	if err != nil {
		return nil, fmt.Errorf("create page client: %w", err)
	}

	rcfg := runner.Config{
		Fetcher: pagination.NewFetcher(pageClient, query, pagination.Config{
			BaseURL:  cfg.BaseURL,
			MaxPages: cfg.MaxPages,
		}),
		Spreadsheet:   export.NewSpreadsheetWriter(),
		OutputDir:     cfg.OutputDir,
		DatasetPrefix: cfg.DatasetPrefix,
		MetricsFile:   cfg.MetricsFile,
	}

	if !cfg.SkipTable {
		table, err := export.OpenTable(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("Database unavailable - skipping table export")
		} else {
			defer func() {
				if err := table.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close database")
				}
			}()
			rcfg.Table = table
		}
	}

	if cfg.RedisAddr != "" {
		rdb := newRedisClient(cfg)
		defer func() { _ = rdb.Close() }()
		rcfg.Store = runstore.NewStore(rdb, cfg.SummaryTTL)
	}

	r, err := runner.New(rcfg)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}

func printReport(w io.Writer, report *runner.Report) {
	s := report.Summary()

	fmt.Fprintf(w, "Dataset:   %s\n", s.Dataset)
	fmt.Fprintf(w, "Outcome:   %s\n", report.Outcome())
	fmt.Fprintf(w, "Records:   %d (%d requests, stop: %s)\n", s.Records, s.Requests, s.StopReason)
	if s.FetchError != "" {
		fmt.Fprintf(w, "Fetch:     %s\n", s.FetchError)
	}
	if s.SpreadsheetError != "" {
		fmt.Fprintf(w, "Sheet:     %s\n", s.SpreadsheetError)
	} else {
		fmt.Fprintf(w, "Sheet:     %s\n", s.Spreadsheet)
	}
	switch {
	case s.Table == "":
		fmt.Fprintln(w, "Table:     skipped")
	case s.TableError != "":
		fmt.Fprintf(w, "Table:     %s\n", s.TableError)
	default:
		fmt.Fprintf(w, "Table:     %s\n", s.Table)
	}
	fmt.Fprintf(w, "Duration:  %s\n", s.Duration.Round(time.Millisecond))
}
