package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"maudedb/internal/extract"
	"maudedb/internal/schema"
)

// Postgres is the alternative destination for shared or larger
// deployments. Load-only: the query helpers operate on the SQLite store.
type Postgres struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// OpenPostgres connects and verifies the destination database.
func OpenPostgres(ctx context.Context, connStr string, log zerolog.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection: %w", err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Postgres{pool: pool, log: log}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) EnsureTable(ctx context.Context, sc *schema.RecordSchema) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
		sc.Table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", sc.Table, err)
	}
	if exists {
		return false, nil
	}

	cols := make([]string, len(sc.Columns))
	for i, c := range sc.Columns {
		cols[i] = pgx.Identifier{c}.Sanitize() + " TEXT"
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pgx.Identifier{sc.Table}.Sanitize(), strings.Join(cols, ", "))

	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return false, fmt.Errorf("create table %s: %w", sc.Table, err)
	}
	p.log.Debug().Str("table", sc.Table).Msg("created table")
	return true, nil
}

func (p *Postgres) InsertRows(ctx context.Context, sc *schema.RecordSchema, rows []extract.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{sc.Table},
		sc.Columns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			if len(rows[i]) != sc.NumColumns() {
				return nil, fmt.Errorf("row %d: got %d fields, want %d", i, len(rows[i]), sc.NumColumns())
			}
			return rowArgs(rows[i]), nil
		}))
	if err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("copy into %s: %w", sc.Table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *Postgres) HasRows(ctx context.Context, sc *schema.RecordSchema) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
		sc.Table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", sc.Table, err)
	}
	if !exists {
		return false, nil
	}

	err = p.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s)", pgx.Identifier{sc.Table}.Sanitize())).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe table %s: %w", sc.Table, err)
	}
	return exists, nil
}

func (p *Postgres) EnsureIndexes(ctx context.Context, sc *schema.RecordSchema) error {
	for _, col := range sc.IndexColumns {
		ddl := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			pgx.Identifier{indexName(sc.Table, col)}.Sanitize(),
			pgx.Identifier{sc.Table}.Sanitize(),
			pgx.Identifier{col}.Sanitize())
		if _, err := p.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create index on %s(%s): %w", sc.Table, col, err)
		}
	}
	return nil
}
