package schema

import "testing"

func TestForKind(t *testing.T) {
	tests := []struct {
		kind       TableKind
		table      string
		casing     Casing
		cumulative bool
		yearField  string
	}{
		{Master, "master", UpperCase, true, "DATE_RECEIVED"},
		{Device, "device", UpperCase, false, ""},
		{Text, "text", UpperCase, false, ""},
		{Patient, "patient", LowerCase, true, "date_received"},
		{DeviceProblem, "problems", UpperCase, false, ""},
	}

	for _, tt := range tests {
		sc, err := ForKind(tt.kind)
		if err != nil {
			t.Fatalf("ForKind(%s): %v", tt.kind, err)
		}
		if sc.Table != tt.table {
			t.Errorf("%s: table = %q, want %q", tt.kind, sc.Table, tt.table)
		}
		if sc.Casing != tt.casing {
			t.Errorf("%s: casing = %v, want %v", tt.kind, sc.Casing, tt.casing)
		}
		if sc.Cumulative != tt.cumulative {
			t.Errorf("%s: cumulative = %v, want %v", tt.kind, sc.Cumulative, tt.cumulative)
		}
		if sc.YearField != tt.yearField {
			t.Errorf("%s: year field = %q, want %q", tt.kind, sc.YearField, tt.yearField)
		}
	}

	if _, err := ForKind("narratives"); err == nil {
		t.Error("ForKind with unknown kind: want error")
	}
}

func TestColumnIndex(t *testing.T) {
	sc, err := ForKind(Patient)
	if err != nil {
		t.Fatal(err)
	}

	if idx := sc.ColumnIndex("mdr_report_key"); idx != 0 {
		t.Errorf("ColumnIndex(mdr_report_key) = %d, want 0", idx)
	}
	if idx := sc.ColumnIndex("sequence_number_outcome"); idx != 4 {
		t.Errorf("ColumnIndex(sequence_number_outcome) = %d, want 4", idx)
	}
	// Casing matters: the patient file is lowercase.
	if idx := sc.ColumnIndex("MDR_REPORT_KEY"); idx != -1 {
		t.Errorf("ColumnIndex(MDR_REPORT_KEY) = %d, want -1", idx)
	}
}

func TestKinds(t *testing.T) {
	kinds, err := Kinds([]string{"master", "patient"})
	if err != nil {
		t.Fatalf("Kinds: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != Master || kinds[1] != Patient {
		t.Errorf("Kinds = %v, want [master patient]", kinds)
	}

	if _, err := Kinds([]string{"master", "bogus"}); err == nil {
		t.Error("Kinds with unknown name: want error")
	}
}

func TestYearFieldIsKnownColumn(t *testing.T) {
	for kind, sc := range byKind {
		if sc.YearField == "" {
			continue
		}
		if sc.ColumnIndex(sc.YearField) < 0 {
			t.Errorf("%s: year field %q not in column set", kind, sc.YearField)
		}
	}
}
