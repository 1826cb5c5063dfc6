package store

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"maudedb/internal/schema"
)

// fakeSource serves in-memory file contents instead of downloaded archives.
type fakeSource struct {
	cumulative map[schema.TableKind]string
	perYear    map[schema.TableKind]map[int]string
}

func (f *fakeSource) Open(ctx context.Context, sc *schema.RecordSchema, year int) (io.ReadCloser, error) {
	data, ok := f.perYear[sc.Kind][year]
	if !ok {
		return nil, fmt.Errorf("no %s archive for %d", sc.FilePrefix, year)
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (f *fakeSource) OpenCumulative(ctx context.Context, sc *schema.RecordSchema) (io.ReadCloser, error) {
	data, ok := f.cumulative[sc.Kind]
	if !ok {
		return nil, fmt.Errorf("no cumulative %s archive", sc.FilePrefix)
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

// fileLine renders one source line for a real table kind, filling only the
// named columns and leaving the rest empty.
func fileLine(t *testing.T, sc *schema.RecordSchema, fields map[string]string) string {
	t.Helper()
	out := make([]string, sc.NumColumns())
	for col, v := range fields {
		idx := sc.ColumnIndex(col)
		if idx < 0 {
			t.Fatalf("column %q not in %s schema", col, sc.Kind)
		}
		out[idx] = v
	}
	return strings.Join(out, "|")
}

func masterFile(t *testing.T) string {
	t.Helper()
	sc, err := schema.ForKind(schema.Master)
	if err != nil {
		t.Fatal(err)
	}
	lines := []string{
		strings.Join(sc.Columns, "|"),
		fileLine(t, sc, map[string]string{"MDR_REPORT_KEY": "1", "DATE_RECEIVED": "03/01/2019", "EVENT_TYPE": "M"}),
		fileLine(t, sc, map[string]string{"MDR_REPORT_KEY": "2", "DATE_RECEIVED": "05/12/2020", "EVENT_TYPE": "D"}),
		fileLine(t, sc, map[string]string{"MDR_REPORT_KEY": "3", "DATE_RECEIVED": "07/23/2020", "EVENT_TYPE": "M"}),
		fileLine(t, sc, map[string]string{"MDR_REPORT_KEY": "4", "DATE_RECEIVED": "11/30/2021", "EVENT_TYPE": "IN"}),
		"garbage line",
	}
	return strings.Join(lines, "\n") + "\n"
}

func patientFile(t *testing.T) string {
	t.Helper()
	sc, err := schema.ForKind(schema.Patient)
	if err != nil {
		t.Fatal(err)
	}
	lines := []string{
		strings.Join(sc.Columns, "|"),
		fileLine(t, sc, map[string]string{"mdr_report_key": "2", "patient_sequence_number": "1", "date_received": "05/12/2020", "sequence_number_outcome": "D"}),
		fileLine(t, sc, map[string]string{"mdr_report_key": "2", "patient_sequence_number": "2", "date_received": "05/12/2020", "sequence_number_outcome": "D;H"}),
	}
	return strings.Join(lines, "\n") + "\n"
}

func deviceFile(t *testing.T, key string) string {
	t.Helper()
	sc, err := schema.ForKind(schema.Device)
	if err != nil {
		t.Fatal(err)
	}
	lines := []string{
		strings.Join(sc.Columns, "|"),
		fileLine(t, sc, map[string]string{"MDR_REPORT_KEY": key, "BRAND_NAME": "ACME PUMP", "DEVICE_REPORT_PRODUCT_CODE": "FRN"}),
	}
	return strings.Join(lines, "\n") + "\n"
}

func textFile(t *testing.T) string {
	t.Helper()
	sc, err := schema.ForKind(schema.Text)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Join(sc.Columns, "|") + "\n"
}

func testSource(t *testing.T) *fakeSource {
	t.Helper()
	return &fakeSource{
		cumulative: map[schema.TableKind]string{
			schema.Master:  masterFile(t),
			schema.Patient: patientFile(t),
		},
		perYear: map[schema.TableKind]map[int]string{
			schema.Device: {
				2020: deviceFile(t, "2"),
				2021: deviceFile(t, "4"),
			},
			schema.DeviceProblem: {
				2020: "MDR_REPORT_KEY|DEVICE_PROBLEM_CODE\n2|1069\n",
				2021: "MDR_REPORT_KEY|DEVICE_PROBLEM_CODE\n4|2682\n",
			},
			schema.Text: {
				2020: textFile(t),
				2021: textFile(t),
			},
		},
	}
}

func countRows(t *testing.T, s *SQLite, table string) int {
	t.Helper()
	var n int
	if err := s.DB().QueryRow(fmt.Sprintf(`SELECT count(*) FROM %q`, table)).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestAddYears(t *testing.T) {
	s := openTestSQLite(t)
	db := New(s, testSource(t), zerolog.Nop())
	ctx := context.Background()

	report, err := db.AddYears(ctx, []int{2020, 2021}, schema.AllKinds())
	if err != nil {
		t.Fatalf("AddYears: %v", err)
	}
	if report.Failed() {
		t.Fatalf("report failed: %+v", report.Tables)
	}

	// Master is cumulative: the 2019 row is skipped, the garbage line is
	// rejected at the pass level.
	master := report.Tables[schema.Master]
	if master.Years[2020].RowsInserted != 2 || master.Years[2021].RowsInserted != 1 {
		t.Errorf("master years = %+v, want 2 rows in 2020 and 1 in 2021", master.Years)
	}
	if master.RowsRejected != 1 {
		t.Errorf("master rejected = %d, want 1", master.RowsRejected)
	}
	if countRows(t, s, "master") != 3 {
		t.Errorf("master table rows = %d, want 3", countRows(t, s, "master"))
	}

	if countRows(t, s, "patient") != 2 {
		t.Errorf("patient table rows = %d, want 2", countRows(t, s, "patient"))
	}
	if countRows(t, s, "device") != 2 {
		t.Errorf("device table rows = %d, want 2", countRows(t, s, "device"))
	}
	if countRows(t, s, "problems") != 2 {
		t.Errorf("problems table rows = %d, want 2", countRows(t, s, "problems"))
	}

	if got := report.RowsInserted(); got != 9 {
		t.Errorf("total rows inserted = %d, want 9", got)
	}

	// The documented query paths work against what was loaded.
	devices, err := s.QueryDevice(ctx, "acme")
	if err != nil {
		t.Fatalf("QueryDevice: %v", err)
	}
	if len(devices) != 2 || devices[0].Brand != "ACME PUMP" {
		t.Errorf("QueryDevice = %+v, want 2 ACME PUMP hits", devices)
	}

	patients, err := s.PatientRecords(ctx)
	if err != nil {
		t.Fatalf("PatientRecords: %v", err)
	}
	outcomes := CountUniqueOutcomesPerReport(patients)
	if len(outcomes) != 1 || outcomes[0].PatientCount != 2 || len(outcomes[0].UniqueOutcomes) != 2 {
		t.Errorf("outcomes = %+v, want one report with 2 patients and outcomes {D,H}", outcomes)
	}

	breakdown, err := s.EventTypeBreakdown(ctx)
	if err != nil {
		t.Fatalf("EventTypeBreakdown: %v", err)
	}
	if breakdown.Deaths != 1 || breakdown.Malfunctions != 1 || breakdown.Injuries != 1 {
		t.Errorf("breakdown = %s, want one each of D, M, IN", breakdown)
	}
}

func TestAddYearsMissingYearNonFatal(t *testing.T) {
	s := openTestSQLite(t)
	src := testSource(t)
	delete(src.perYear[schema.Device], 2021)
	db := New(s, src, zerolog.Nop())

	report, err := db.AddYears(context.Background(), []int{2020, 2021}, []schema.TableKind{schema.Device})
	if err != nil {
		t.Fatalf("AddYears: %v", err)
	}
	if !report.Failed() {
		t.Error("report.Failed() = false with a missing year")
	}

	device := report.Tables[schema.Device]
	if device.Err != nil {
		t.Errorf("table-level err = %v; a missing year must not fail the table", device.Err)
	}
	if device.Years[2021].Err == nil {
		t.Error("2021: want recorded error for missing archive")
	}
	if device.Years[2020].RowsInserted != 1 {
		t.Errorf("2020 rows = %d, want 1: siblings proceed past a missing year", device.Years[2020].RowsInserted)
	}
}

func TestAddYearsMissingCumulativeFailsTable(t *testing.T) {
	s := openTestSQLite(t)
	src := testSource(t)
	delete(src.cumulative, schema.Master)
	db := New(s, src, zerolog.Nop())

	report, err := db.AddYears(context.Background(), []int{2020}, []schema.TableKind{schema.Master})
	if err != nil {
		t.Fatalf("AddYears: %v", err)
	}
	if report.Tables[schema.Master].Err == nil {
		t.Error("master: want table-level error for missing cumulative archive")
	}
}

func TestAddYearsReimportAppends(t *testing.T) {
	s := openTestSQLite(t)
	db := New(s, testSource(t), zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		report, err := db.AddYears(ctx, []int{2020}, []schema.TableKind{schema.Master})
		if err != nil {
			t.Fatalf("AddYears pass %d: %v", i, err)
		}
		if report.Failed() {
			t.Fatalf("pass %d failed: %+v", i, report.Tables)
		}
	}

	// No deduplication on reimport: the second pass appends.
	if n := countRows(t, s, "master"); n != 4 {
		t.Errorf("master rows after reimport = %d, want 4", n)
	}
}

func TestAddYearsCancelled(t *testing.T) {
	s := openTestSQLite(t)
	db := New(s, testSource(t), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := db.AddYears(ctx, []int{2020}, schema.AllKinds()); err == nil {
		t.Error("AddYears with cancelled context: want error")
	}
}
