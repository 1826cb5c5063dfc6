package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"maudedb/internal/extract"
	"maudedb/internal/schema"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "maude.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testStoreSchema(t *testing.T) *schema.RecordSchema {
	t.Helper()
	return schema.New(schema.RecordSchema{
		Kind:         "synthetic",
		Table:        "synthetic",
		Delimiter:    '|',
		Columns:      []string{"MDR_REPORT_KEY", "DATE_RECEIVED", "EVENT_TYPE"},
		IndexColumns: []string{"MDR_REPORT_KEY"},
	})
}

// tableColumns reads the column names of a table in declaration order.
func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table_info(%s): %v", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatal(err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	return cols
}

func TestEnsureTablePreservesCasing(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	patient, err := schema.ForKind(schema.Patient)
	if err != nil {
		t.Fatal(err)
	}
	device, err := schema.ForKind(schema.Device)
	if err != nil {
		t.Fatal(err)
	}

	for _, sc := range []*schema.RecordSchema{patient, device} {
		created, err := s.EnsureTable(ctx, sc)
		if err != nil {
			t.Fatalf("EnsureTable(%s): %v", sc.Table, err)
		}
		if !created {
			t.Errorf("EnsureTable(%s): created = false on first call", sc.Table)
		}
	}

	// The patient file ships lowercase column names, device uppercase;
	// both must land in the store byte-for-byte.
	gotPatient := tableColumns(t, s.DB(), "patient")
	if len(gotPatient) == 0 || gotPatient[0] != "mdr_report_key" {
		t.Errorf("patient columns = %v, want lowercase mdr_report_key first", gotPatient)
	}
	gotDevice := tableColumns(t, s.DB(), "device")
	if len(gotDevice) == 0 || gotDevice[0] != "MDR_REPORT_KEY" {
		t.Errorf("device columns = %v, want uppercase MDR_REPORT_KEY first", gotDevice)
	}

	// Second call is a no-op.
	created, err := s.EnsureTable(ctx, patient)
	if err != nil {
		t.Fatalf("EnsureTable repeat: %v", err)
	}
	if created {
		t.Error("EnsureTable repeat: created = true")
	}
}

func TestInsertRowsNullMapping(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	sc := testStoreSchema(t)

	if _, err := s.EnsureTable(ctx, sc); err != nil {
		t.Fatal(err)
	}
	rows := []extract.Row{
		{"1", "20200101", "M"},
		{"2", "", "D"},
	}
	if err := s.InsertRows(ctx, sc, rows); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	var n int
	err := s.DB().QueryRow(`SELECT count(*) FROM synthetic WHERE "DATE_RECEIVED" IS NULL`).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("NULL dates = %d, want 1: empty fields must be stored as NULL", n)
	}
	err = s.DB().QueryRow(`SELECT count(*) FROM synthetic WHERE "DATE_RECEIVED" = ''`).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("empty-string dates = %d, want 0", n)
	}
}

func TestInsertRowsAtomic(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	sc := testStoreSchema(t)

	if _, err := s.EnsureTable(ctx, sc); err != nil {
		t.Fatal(err)
	}

	// A committed batch first, then a batch with a bad-arity row in the
	// middle. The second batch must roll back entirely; the first stays.
	good := []extract.Row{{"1", "20190101", "M"}, {"2", "20190202", "D"}}
	if err := s.InsertRows(ctx, sc, good); err != nil {
		t.Fatalf("first batch: %v", err)
	}

	bad := []extract.Row{
		{"3", "20200101", "M"},
		{"4", "20200202"}, // missing field
		{"5", "20200303", "M"},
	}
	if err := s.InsertRows(ctx, sc, bad); err == nil {
		t.Fatal("bad batch: want error")
	}

	var n int
	if err := s.DB().QueryRow("SELECT count(*) FROM synthetic").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("row count = %d, want 2 (failed batch must leave no rows)", n)
	}
}

func TestHasRows(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	sc := testStoreSchema(t)

	// Missing table: no rows, no error.
	has, err := s.HasRows(ctx, sc)
	if err != nil {
		t.Fatalf("HasRows before create: %v", err)
	}
	if has {
		t.Error("HasRows = true for missing table")
	}

	if _, err := s.EnsureTable(ctx, sc); err != nil {
		t.Fatal(err)
	}
	has, err = s.HasRows(ctx, sc)
	if err != nil {
		t.Fatalf("HasRows empty: %v", err)
	}
	if has {
		t.Error("HasRows = true for empty table")
	}

	if err := s.InsertRows(ctx, sc, []extract.Row{{"1", "20200101", "M"}}); err != nil {
		t.Fatal(err)
	}
	has, err = s.HasRows(ctx, sc)
	if err != nil {
		t.Fatalf("HasRows populated: %v", err)
	}
	if !has {
		t.Error("HasRows = false for populated table")
	}
}

func TestEnsureIndexes(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	sc := testStoreSchema(t)

	if _, err := s.EnsureTable(ctx, sc); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureIndexes(ctx, sc); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	// Idempotent.
	if err := s.EnsureIndexes(ctx, sc); err != nil {
		t.Fatalf("EnsureIndexes repeat: %v", err)
	}

	var name string
	err := s.DB().QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`,
		"idx_synthetic_mdr_report_key").Scan(&name)
	if err != nil {
		t.Fatalf("index lookup: %v", err)
	}
}
