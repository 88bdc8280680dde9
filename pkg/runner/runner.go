// Package runner executes one scrape run: fetch every page, write the
// spreadsheet, replace the dated table, record a summary. A failing step is
// logged and reported; it never aborts the steps after it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/mmreality-scraper/pkg/export"
	"github.com/Sternrassler/mmreality-scraper/pkg/listing"
	"github.com/Sternrassler/mmreality-scraper/pkg/logging"
	"github.com/Sternrassler/mmreality-scraper/pkg/metrics"
	"github.com/Sternrassler/mmreality-scraper/pkg/pagination"
	"github.com/Sternrassler/mmreality-scraper/pkg/runstore"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// ErrNoData is returned when fetching failed before any record arrived.
var ErrNoData = errors.New("scrape produced no data")

// Run outcomes.
const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeFailed   = "failed"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mmreality_runs_total",
		Help: "Scrape runs by outcome",
	}, []string{"result"})

	lastRunRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mmreality_last_run_records",
		Help: "Records produced by the last run",
	})

	lastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mmreality_last_run_timestamp_seconds",
		Help: "Unix time the last run finished",
	})
)

// Fetcher produces the ResultSet of a run.
type Fetcher interface {
	FetchAll(ctx context.Context) (*pagination.Result, error)
}

// SpreadsheetWriter writes the ResultSet to a file.
type SpreadsheetWriter interface {
	Write(path string, rs listing.ResultSet) error
}

// TableReplacer replaces a relational table with the ResultSet.
type TableReplacer interface {
	ReplaceTable(ctx context.Context, table string, rs listing.ResultSet) error
}

// SummaryStore persists run summaries.
type SummaryStore interface {
	Save(ctx context.Context, summary runstore.Summary) error
}

// Config wires a Runner. Fetcher and Spreadsheet are required; Table and
// Store are optional and skipped when nil.
type Config struct {
	Fetcher     Fetcher
	Spreadsheet SpreadsheetWriter
	Table       TableReplacer
	Store       SummaryStore

	OutputDir     string
	DatasetPrefix string

	// MetricsFile, when set, receives a metrics dump at the end of the run.
	MetricsFile string

	// Now defaults to time.Now. The dataset name uses its calendar date.
	Now func() time.Time
}

// Runner executes scrape runs.
type Runner struct {
	config Config
	logger zerolog.Logger
}

// New creates a new runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Spreadsheet == nil {
		return nil, fmt.Errorf("spreadsheet writer is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DatasetPrefix == "" {
		cfg.DatasetPrefix = export.DefaultDatasetPrefix
	}

	return &Runner{
		config: cfg,
		logger: logging.NewLogger("runner"),
	}, nil
}

// Report is the outcome of one run.
type Report struct {
	RunID     string
	Dataset   string
	StartedAt time.Time
	Duration  time.Duration

	Fetch    *pagination.Result
	FetchErr error

	SpreadsheetPath string
	SpreadsheetErr  error

	Table    string
	TableErr error

	StoreErr   error
	MetricsErr error
}

// Records returns the fetched ResultSet.
func (r *Report) Records() listing.ResultSet {
	if r.Fetch == nil {
		return nil
	}
	return r.Fetch.Records
}

// Outcome classifies the run as complete, partial or failed.
func (r *Report) Outcome() string {
	switch {
	case r.FetchErr != nil && len(r.Records()) == 0:
		return OutcomeFailed
	case r.FetchErr != nil, r.SpreadsheetErr != nil, r.TableErr != nil:
		return OutcomePartial
	default:
		return OutcomeComplete
	}
}

// Summary converts the report into a storable run summary.
func (r *Report) Summary() runstore.Summary {
	s := runstore.Summary{
		RunID:       r.RunID,
		Dataset:     r.Dataset,
		StartedAt:   r.StartedAt,
		Duration:    r.Duration,
		Records:     len(r.Records()),
		Spreadsheet: r.SpreadsheetPath,
		Table:       r.Table,
	}
	if r.Fetch != nil {
		s.Requests = r.Fetch.Requests
		s.Pages = r.Fetch.Pages
		s.PagesHint = r.Fetch.PagesHint
		s.StopReason = string(r.Fetch.Stop)
	}
	s.FetchError = errString(r.FetchErr)
	s.SpreadsheetError = errString(r.SpreadsheetErr)
	s.TableError = errString(r.TableErr)
	return s
}

// Run executes one scrape run. The report is always returned; the error is
// ErrNoData when nothing could be fetched, nil otherwise.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	started := r.config.Now()
	report := &Report{
		RunID:     uuid.NewString(),
		Dataset:   export.DatasetName(r.config.DatasetPrefix, started),
		StartedAt: started,
	}
	logger := r.logger.With().Str("run_id", report.RunID).Str("dataset", report.Dataset).Logger()

	logger.Info().Msg("Run started")

	report.Fetch, report.FetchErr = r.config.Fetcher.FetchAll(ctx)
	if report.Fetch == nil {
		report.Fetch = &pagination.Result{Stop: pagination.StopError}
	}
	if report.FetchErr != nil {
		logger.Error().
			Err(report.FetchErr).
			Int("records", len(report.Records())).
			Msg("Fetch stopped early - exporting partial data")
	}

	rs := report.Records()

	report.SpreadsheetPath = export.SpreadsheetPath(r.config.OutputDir, report.Dataset)
	if err := r.config.Spreadsheet.Write(report.SpreadsheetPath, rs); err != nil {
		report.SpreadsheetErr = err
		logger.Error().Err(err).Str("path", report.SpreadsheetPath).Msg("Spreadsheet export failed")
	}

	if r.config.Table != nil {
		report.Table = report.Dataset
		if err := r.config.Table.ReplaceTable(ctx, report.Table, rs); err != nil {
			report.TableErr = err
			event := logger.Error()
			if errors.Is(err, export.ErrEmptyResultSet) {
				event = logger.Warn()
			}
			event.Err(err).Str("table", report.Table).Msg("Table export skipped")
		}
	} else {
		logger.Debug().Msg("No table writer configured - skipping table export")
	}

	report.Duration = r.config.Now().Sub(started)
	outcome := report.Outcome()

	if r.config.Store != nil {
		if err := r.config.Store.Save(ctx, report.Summary()); err != nil {
			report.StoreErr = err
			logger.Warn().Err(err).Msg("Failed to save run summary")
		}
	}

	runsTotal.WithLabelValues(outcome).Inc()
	lastRunRecords.Set(float64(len(rs)))
	lastRunTimestamp.Set(float64(r.config.Now().Unix()))

	if r.config.MetricsFile != "" {
		if err := metrics.WriteTextfile(r.config.MetricsFile); err != nil {
			report.MetricsErr = err
			logger.Warn().Err(err).Str("path", r.config.MetricsFile).Msg("Failed to write metrics")
		}
	}

	logger.Info().
		Str("outcome", outcome).
		Int("records", len(rs)).
		Int("requests", report.Fetch.Requests).
		Dur("duration", report.Duration).
		Msg("Run complete")

	if outcome == OutcomeFailed {
		return report, fmt.Errorf("%w: %v", ErrNoData, report.FetchErr)
	}
	return report, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
