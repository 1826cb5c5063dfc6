package store

import (
	"fmt"
	"sort"
	"strings"
)

// Read-side correction helpers. These are pure functions over materialized
// query results, deliberately outside the load pipeline.
//
// Background on the patient helpers: in multi-patient reports the FDA data
// concatenates outcome codes cumulatively across patient rows — patient 1
// carries "D", patient 2 "D;H", patient 3 "D;H;L". Counting outcomes row
// by row therefore overcounts; a correct per-report count takes the set
// union of the split codes across the report's rows.

// PatientRecord is one row of the patient table, as queried.
type PatientRecord struct {
	ReportKey      string
	SequenceNumber string
	Outcomes       string // ";"-separated outcome codes, possibly concatenated
}

// MultiPatientSummary describes how much of a result set is affected by
// multi-patient concatenation.
type MultiPatientSummary struct {
	TotalReports        int
	MultiPatientReports int
	AffectedPercentage  float64
	AffectedKeys        []string
}

// ReportOutcomes is the corrected per-report outcome view.
type ReportOutcomes struct {
	ReportKey      string
	PatientCount   int
	UniqueOutcomes []string // sorted, deduplicated
}

// SplitCodes splits a ";"-separated code field, trimming whitespace and
// dropping empties.
func SplitCodes(s string) []string {
	if s == "" {
		return nil
	}
	var codes []string
	for _, c := range strings.Split(s, ";") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

// DetectMultiPatientReports reports which MDR report keys have more than
// one patient row.
func DetectMultiPatientReports(records []PatientRecord) MultiPatientSummary {
	perReport := make(map[string]int)
	for _, r := range records {
		perReport[r.ReportKey]++
	}

	summary := MultiPatientSummary{TotalReports: len(perReport)}
	for key, n := range perReport {
		if n > 1 {
			summary.MultiPatientReports++
			summary.AffectedKeys = append(summary.AffectedKeys, key)
		}
	}
	sort.Strings(summary.AffectedKeys)

	if summary.TotalReports > 0 {
		summary.AffectedPercentage = float64(summary.MultiPatientReports) / float64(summary.TotalReports) * 100
	}
	return summary
}

// CountUniqueOutcomesPerReport computes the corrected outcome set per
// report: the union of split codes across the report's patient rows, so
// concatenated duplicates count once. Results are sorted by report key.
func CountUniqueOutcomesPerReport(records []PatientRecord) []ReportOutcomes {
	patients := make(map[string]int)
	outcomes := make(map[string]map[string]bool)
	for _, r := range records {
		patients[r.ReportKey]++
		set := outcomes[r.ReportKey]
		if set == nil {
			set = make(map[string]bool)
			outcomes[r.ReportKey] = set
		}
		for _, code := range SplitCodes(r.Outcomes) {
			set[code] = true
		}
	}

	out := make([]ReportOutcomes, 0, len(patients))
	for key, n := range patients {
		ro := ReportOutcomes{ReportKey: key, PatientCount: n}
		for code := range outcomes[key] {
			ro.UniqueOutcomes = append(ro.UniqueOutcomes, code)
		}
		sort.Strings(ro.UniqueOutcomes)
		out = append(out, ro)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportKey < out[j].ReportKey })
	return out
}

// EventRecord is the slice of a master row the event-level deduplication
// works on.
type EventRecord struct {
	ReportKey    string
	EventKey     string
	DateReceived string // MM/DD/YYYY
}

// DeduplicateEvents selects one representative report per event key:
// earliest received date, ties broken by lowest report key. Records with
// no event key stand for themselves. Results are sorted by report key.
func DeduplicateEvents(records []EventRecord) []EventRecord {
	best := make(map[string]EventRecord)
	var singletons []EventRecord

	for _, r := range records {
		if r.EventKey == "" {
			singletons = append(singletons, r)
			continue
		}
		cur, ok := best[r.EventKey]
		if !ok || eventBefore(r, cur) {
			best[r.EventKey] = r
		}
	}

	out := make([]EventRecord, 0, len(best)+len(singletons))
	for _, r := range best {
		out = append(out, r)
	}
	out = append(out, singletons...)
	sort.Slice(out, func(i, j int) bool { return reportKeyLess(out[i].ReportKey, out[j].ReportKey) })
	return out
}

func eventBefore(a, b EventRecord) bool {
	da, db := sortableDate(a.DateReceived), sortableDate(b.DateReceived)
	if da != db {
		return da < db
	}
	return reportKeyLess(a.ReportKey, b.ReportKey)
}

// sortableDate rewrites MM/DD/YYYY as YYYYMMDD for comparison. Unparsable
// dates sort last so a dated report wins the representative slot.
func sortableDate(d string) string {
	if len(d) != 10 || d[2] != '/' || d[5] != '/' {
		return "99999999"
	}
	return d[6:] + d[:2] + d[3:5]
}

// reportKeyLess orders numeric report-key strings by magnitude (shorter
// keys first), falling back to lexical order.
func reportKeyLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Breakdown is the event-type tally of a loaded master table.
type Breakdown struct {
	Total        int64
	Deaths       int64
	Injuries     int64
	Malfunctions int64
	Other        int64
}

func (b Breakdown) String() string {
	return fmt.Sprintf("total=%d deaths=%d injuries=%d malfunctions=%d other=%d",
		b.Total, b.Deaths, b.Injuries, b.Malfunctions, b.Other)
}
