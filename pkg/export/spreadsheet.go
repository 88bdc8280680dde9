package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sternrassler/mmreality-scraper/pkg/listing"
	"github.com/Sternrassler/mmreality-scraper/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is the name of the single worksheet.
const DefaultSheetName = "listings"

// SpreadsheetWriter writes a ResultSet as an xlsx workbook.
type SpreadsheetWriter struct {
	sheet  string
	logger zerolog.Logger
}

// NewSpreadsheetWriter creates a writer using DefaultSheetName.
func NewSpreadsheetWriter() *SpreadsheetWriter {
	return &SpreadsheetWriter{
		sheet:  DefaultSheetName,
		logger: logging.NewLogger("export"),
	}
}

// SpreadsheetPath returns "<dir>/<dataset>.xlsx".
func SpreadsheetPath(dir, dataset string) string {
	return filepath.Join(dir, dataset+".xlsx")
}

// Write saves rs to path: one header row, then one row per record in order.
// An empty ResultSet produces a header-only file. Missing parent
// directories are created.
func (w *SpreadsheetWriter) Write(path string, rs listing.ResultSet) error {
	err := w.write(path, rs)
	if err != nil {
		err = &ExportError{Target: TargetSpreadsheet, Name: path, Err: err}
	}
	return record(TargetSpreadsheet, err)
}

func (w *SpreadsheetWriter) write(path string, rs listing.ResultSet) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", w.sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(w.sheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]any, 0, len(listing.Columns))
	for _, c := range listing.Columns {
		header = append(header, c.Header)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(r.Values())); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	w.logger.Info().
		Str("path", path).
		Int("records", len(rs)).
		Msg("Spreadsheet written")

	return nil
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
