package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/mmreality-scraper/pkg/listing"
	"github.com/Sternrassler/mmreality-scraper/pkg/logging"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteTable writes tables to a local SQLite database file.
type SQLiteTable struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteTable opens (and creates if needed) the database at path.
// path may be a plain file path or a "file:" URI.
func NewSQLiteTable(ctx context.Context, path string) (*SQLiteTable, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	if !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect sqlite: %w", err)
	}

	return &SQLiteTable{
		db:     db,
		logger: logging.NewLogger("export").With().Str("backend", "sqlite").Logger(),
	}, nil
}

// ReplaceTable drops, recreates and fills the table in one transaction.
func (s *SQLiteTable) ReplaceTable(ctx context.Context, table string, rs listing.ResultSet) error {
	err := s.replace(ctx, table, rs)
	if err != nil {
		err = &ExportError{Target: TargetTable, Name: table, Err: err}
	}
	return record(TargetTable, err)
}

func (s *SQLiteTable) replace(ctx context.Context, table string, rs listing.ResultSet) (err error) {
	if len(rs) == 0 {
		return ErrEmptyResultSet
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	quoted := quoteIdent(table)

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(quoted)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(listing.Columns)), ", ")
	insertSQL := "INSERT INTO " + quoted + " (" + strings.Join(columnNames(), ", ") + ") VALUES (" + placeholders + ")"

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rs {
		if _, err := stmt.ExecContext(ctx, toCells(r.Values())...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info().
		Str("table", table).
		Int("rows", len(rs)).
		Msg("Table replaced")

	return nil
}

// Close closes the database.
func (s *SQLiteTable) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
