// Package export writes a listing.ResultSet to a spreadsheet file and to a
// relational table named after the dataset and date.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/mmreality-scraper/pkg/listing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultDatasetPrefix names the spreadsheet file and table.
const DefaultDatasetPrefix = "mmreality_dataset"

// Target identifies an export destination.
type Target string

const (
	// TargetSpreadsheet is the xlsx file.
	TargetSpreadsheet Target = "spreadsheet"

	// TargetTable is the relational table.
	TargetTable Target = "table"
)

// ErrEmptyResultSet is returned when asked to create a table with no rows.
var ErrEmptyResultSet = errors.New("result set is empty")

var exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mmreality_export_total",
	Help: "Export attempts by target and result",
}, []string{"target", "result"})

// ExportError wraps every failure of an export step.
type ExportError struct {
	Target Target
	Name   string
	Err    error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s %q: %v", e.Target, e.Name, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ExportError) Unwrap() error {
	return e.Err
}

// DatasetName returns "<prefix>_<YYYY-MM-DD>" for t's calendar date.
func DatasetName(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = DefaultDatasetPrefix
	}
	return prefix + "_" + t.Format("2006-01-02")
}

// createTableSQL builds the DDL for an already quoted table name.
func createTableSQL(quotedTable string) string {
	cols := make([]string, 0, len(listing.Columns))
	for _, c := range listing.Columns {
		cols = append(cols, c.Name+" TEXT")
	}
	return "CREATE TABLE " + quotedTable + " (" + strings.Join(cols, ", ") + ")"
}

func columnNames() []string {
	names := make([]string, 0, len(listing.Columns))
	for _, c := range listing.Columns {
		names = append(names, c.Name)
	}
	return names
}

func record(target Target, err error) error {
	if err != nil {
		exportsTotal.WithLabelValues(string(target), "error").Inc()
		return err
	}
	exportsTotal.WithLabelValues(string(target), "ok").Inc()
	return nil
}
