package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"maudedb/internal/extract"
	"maudedb/internal/schema"
)

// SQLite is the default destination store: a single local database file,
// which is what researchers query afterwards.
type SQLite struct {
	db  *sql.DB
	log zerolog.Logger
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(path string, log zerolog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	return &SQLite{db: db, log: log}, nil
}

// DB exposes the underlying connection for the read-side query helpers.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) EnsureTable(ctx context.Context, sc *schema.RecordSchema) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, sc.Table).Scan(&name)
	switch {
	case err == nil:
		return false, nil
	case err != sql.ErrNoRows:
		return false, fmt.Errorf("check table %s: %w", sc.Table, err)
	}

	cols := make([]string, len(sc.Columns))
	for i, c := range sc.Columns {
		cols[i] = quoteIdent(c) + " TEXT"
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdent(sc.Table), strings.Join(cols, ", "))

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return false, fmt.Errorf("create table %s: %w", sc.Table, err)
	}
	s.log.Debug().Str("table", sc.Table).Msg("created table")
	return true, nil
}

func (s *SQLite) InsertRows(ctx context.Context, sc *schema.RecordSchema, rows []extract.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	quoted := make([]string, len(sc.Columns))
	for i, c := range sc.Columns {
		quoted[i] = quoteIdent(c)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(sc.Table),
		strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(sc.Columns)), ", "))

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != sc.NumColumns() {
			tx.Rollback()
			return fmt.Errorf("row %d: got %d fields, want %d", i, len(row), sc.NumColumns())
		}
		if _, err := stmt.ExecContext(ctx, rowArgs(row)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLite) HasRows(ctx context.Context, sc *schema.RecordSchema) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, sc.Table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", sc.Table, err)
	}

	var one int
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s LIMIT 1", quoteIdent(sc.Table))).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe table %s: %w", sc.Table, err)
	}
	return true, nil
}

func (s *SQLite) EnsureIndexes(ctx context.Context, sc *schema.RecordSchema) error {
	for _, col := range sc.IndexColumns {
		ddl := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent(indexName(sc.Table, col)), quoteIdent(sc.Table), quoteIdent(col))
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create index on %s(%s): %w", sc.Table, col, err)
		}
	}
	return nil
}

func indexName(table, col string) string {
	return "idx_" + table + "_" + strings.ToLower(col)
}

// quoteIdent double-quotes an identifier so column casing survives
// verbatim in the destination store.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
