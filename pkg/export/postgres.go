package export

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/mmreality-scraper/pkg/listing"
	"github.com/Sternrassler/mmreality-scraper/pkg/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PostgresTable writes tables through a pgx connection pool.
type PostgresTable struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresTable connects and pings the database.
func NewPostgresTable(ctx context.Context, dsn string) (*PostgresTable, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &PostgresTable{
		pool:   pool,
		logger: logging.NewLogger("export").With().Str("backend", "postgres").Logger(),
	}, nil
}

// ReplaceTable drops, recreates and fills the table in one transaction.
func (p *PostgresTable) ReplaceTable(ctx context.Context, table string, rs listing.ResultSet) error {
	err := p.replace(ctx, table, rs)
	if err != nil {
		err = &ExportError{Target: TargetTable, Name: table, Err: err}
	}
	return record(TargetTable, err)
}

func (p *PostgresTable) replace(ctx context.Context, table string, rs listing.ResultSet) error {
	if len(rs) == 0 {
		return ErrEmptyResultSet
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback(ctx)

	ident := pgx.Identifier{table}
	quoted := ident.Sanitize()

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.Exec(ctx, createTableSQL(quoted)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	rows := make([][]any, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, toCells(r.Values()))
	}

	copied, err := tx.CopyFrom(ctx, ident, columnNames(), pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	p.logger.Info().
		Str("table", table).
		Int64("rows", copied).
		Msg("Table replaced")

	return nil
}

// Close closes the pool.
func (p *PostgresTable) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
