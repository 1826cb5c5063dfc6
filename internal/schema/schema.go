package schema

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// TableKind identifies one of the five MAUDE record types.
type TableKind string

const (
	Master        TableKind = "master"
	Device        TableKind = "device"
	Text          TableKind = "text"
	Patient       TableKind = "patient"
	DeviceProblem TableKind = "problems"
)

// Casing records the column-name casing a table kind ships with. The FDA
// files are inconsistent (patient is lowercase, everything else uppercase)
// and published example SQL depends on the exact casing per table, so it is
// carried verbatim into the destination store.
type Casing int

const (
	UpperCase Casing = iota
	LowerCase
)

// Year-field formats understood by the classifier.
const (
	FormatDateYMD   = "YYYYMMDD"   // 8-digit compact date
	FormatYear      = "YYYY"       // bare 4-digit year token
	FormatDateSlash = "MM/DD/YYYY" // slash-separated date, as MAUDE ships
)

// RecordSchema is the static descriptor for one table kind: column set,
// delimiter, encoding policy, and how to derive the calendar year of a row.
// Instances are immutable; build synthetic ones in tests rather than
// mutating the package-level descriptors.
type RecordSchema struct {
	Kind       TableKind
	Table      string // destination table name
	FilePrefix string // FDA archive prefix, e.g. "mdrfoi" → mdrfoi2023.zip

	Columns   []string
	Delimiter byte
	Casing    Casing

	// Fallback is tried when a line is not valid UTF-8. Nil means strict
	// UTF-8 only. MAUDE files are predominantly latin-1.
	Fallback *charmap.Charmap

	// Cumulative marks kinds the FDA distributes as one all-years archive
	// rather than one archive per year.
	Cumulative bool

	// YearField names the column the year classifier reads, in YearFormat.
	// Empty for kinds with no date column (device-problem), whose year is
	// implied by the source file.
	YearField  string
	YearFormat string

	// IndexColumns are indexed after import for the documented query
	// patterns.
	IndexColumns []string

	colIdx map[string]int
}

// ColumnIndex returns the position of a column, or -1 if the schema does
// not carry it.
func (s *RecordSchema) ColumnIndex(name string) int {
	if idx, ok := s.colIdx[name]; ok {
		return idx
	}
	return -1
}

// NumColumns returns the expected field count per source line.
func (s *RecordSchema) NumColumns() int {
	return len(s.Columns)
}

func (s *RecordSchema) index() *RecordSchema {
	s.colIdx = make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		s.colIdx[c] = i
	}
	return s
}

// New builds an indexed RecordSchema from a literal. Intended for
// synthetic schemas in tests; production code uses ForKind.
func New(rs RecordSchema) *RecordSchema {
	cp := rs
	return (&cp).index()
}

// ForKind returns the descriptor for a table kind.
func ForKind(kind TableKind) (*RecordSchema, error) {
	sc, ok := byKind[kind]
	if !ok {
		return nil, fmt.Errorf("unknown table kind %q", kind)
	}
	return sc, nil
}

// Kinds maps CLI table names to TableKinds, rejecting unknown names.
func Kinds(names []string) ([]TableKind, error) {
	kinds := make([]TableKind, 0, len(names))
	for _, n := range names {
		kind := TableKind(n)
		if _, ok := byKind[kind]; !ok {
			return nil, fmt.Errorf("unknown table %q (valid: master, device, text, patient, problems)", n)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// AllKinds returns every table kind in load order.
func AllKinds() []TableKind {
	return []TableKind{Master, Device, Text, Patient, DeviceProblem}
}
