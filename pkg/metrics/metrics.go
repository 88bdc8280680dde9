// Package metrics exposes the Prometheus registry used by the scraper.
// Metrics are defined in their own packages (client, pagination, export,
// runner) and registered there via promauto.
//
// A scrape is a short-lived batch job, so metrics are dumped to a file for
// the node_exporter textfile collector instead of being served.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Gatherer reads the metrics the packages register through promauto on the
// default registry.
var Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes all gathered metrics to path in the text exposition
// format. The write is atomic.
func WriteTextfile(path string) error {
	return WriteTextfileFrom(path, Gatherer)
}

// WriteTextfileFrom writes the metrics of g to path.
func WriteTextfileFrom(path string, g prometheus.Gatherer) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - mmreality_requests_total{status} (Counter): offer API requests by HTTP status or "transport_error"
//   - mmreality_request_duration_seconds (Histogram): offer API request duration
//   - mmreality_errors_total{class} (Counter): failures by class (transport, http_status, decode)
//
// Pagination Metrics (pkg/pagination):
//   - mmreality_pages_fetched_total (Counter): non-empty pages fetched
//   - mmreality_records_total (Counter): listing records extracted
//
// Export Metrics (pkg/export):
//   - mmreality_export_total{target, result} (Counter): spreadsheet/table writes by outcome
//
// Run Metrics (pkg/runner):
//   - mmreality_runs_total{result} (Counter): runs by outcome (complete, partial, failed)
//   - mmreality_last_run_records (Gauge): records produced by the last run
//   - mmreality_last_run_timestamp_seconds (Gauge): end time of the last run
//
// Example Prometheus Queries:
//
//   # Hours since the last run
//   (time() - mmreality_last_run_timestamp_seconds) / 3600
//
//   # Runs that lost data
//   increase(mmreality_runs_total{result!="complete"}[1d])
