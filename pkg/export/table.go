package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/mmreality-scraper/pkg/listing"
)

// TableWriter replaces a relational table with the contents of a ResultSet.
type TableWriter interface {
	// ReplaceTable drops any table with the given name and recreates it
	// holding rs. An empty rs returns ErrEmptyResultSet and leaves the
	// database untouched.
	ReplaceTable(ctx context.Context, table string, rs listing.ResultSet) error

	Close() error
}

// OpenTable opens the backend selected by the DSN scheme:
//
//	postgres://..., postgresql://...  PostgreSQL via pgx
//	sqlite://<path>, file:<path>      SQLite
func OpenTable(ctx context.Context, dsn string) (TableWriter, error) {
	var (
		w   TableWriter
		err error
	)

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		var pt *PostgresTable
		pt, err = NewPostgresTable(ctx, dsn)
		w = pt
	case strings.HasPrefix(dsn, "sqlite://"):
		var st *SQLiteTable
		st, err = NewSQLiteTable(ctx, strings.TrimPrefix(dsn, "sqlite://"))
		w = st
	case strings.HasPrefix(dsn, "file:"):
		var st *SQLiteTable
		st, err = NewSQLiteTable(ctx, dsn)
		w = st
	default:
		return nil, fmt.Errorf("unsupported database url %q", redact(dsn))
	}

	if err != nil {
		return nil, err
	}
	return w, nil
}

// redact hides everything after the scheme so credentials never reach logs.
func redact(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "..."
	}
	if len(dsn) > 8 {
		return dsn[:8] + "..."
	}
	return dsn
}
