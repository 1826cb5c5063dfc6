package store

import (
	"context"
	"fmt"
	"strings"
)

// SQL read helpers over a loaded SQLite store. Column casing in these
// queries matches what the loader wrote: uppercase except the patient
// table.

// DeviceEvent is one device-table hit from QueryDevice.
type DeviceEvent struct {
	ReportKey    string
	Brand        string
	Generic      string
	Manufacturer string
	ProductCode  string
}

// Narrative is one foitext row.
type Narrative struct {
	ReportKey    string
	TextTypeCode string
	Text         string
}

// QueryDevice searches the device table by brand or generic name,
// case-insensitively.
func (s *SQLite) QueryDevice(ctx context.Context, name string) ([]DeviceEvent, error) {
	pattern := "%" + name + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT "MDR_REPORT_KEY",
		       COALESCE("BRAND_NAME", ''),
		       COALESCE("GENERIC_NAME", ''),
		       COALESCE("MANUFACTURER_D_NAME", ''),
		       COALESCE("DEVICE_REPORT_PRODUCT_CODE", '')
		FROM "device"
		WHERE "BRAND_NAME" LIKE ? OR "GENERIC_NAME" LIKE ?`,
		pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("query device: %w", err)
	}
	defer rows.Close()

	var out []DeviceEvent
	for rows.Next() {
		var d DeviceEvent
		if err := rows.Scan(&d.ReportKey, &d.Brand, &d.Generic, &d.Manufacturer, &d.ProductCode); err != nil {
			return nil, fmt.Errorf("scan device row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// NarrativesFor fetches the narrative texts for a set of report keys.
func (s *SQLite) NarrativesFor(ctx context.Context, keys []string) ([]Narrative, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var out []Narrative

	// Chunk the IN list to stay under SQLite's bound-parameter limit.
	const chunk = 500
	for start := 0; start < len(keys); start += chunk {
		end := min(start+chunk, len(keys))
		part := keys[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(part)), ", ")
		args := make([]any, len(part))
		for i, k := range part {
			args[i] = k
		}

		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT "MDR_REPORT_KEY", COALESCE("TEXT_TYPE_CODE", ''), COALESCE("FOI_TEXT", '')
			FROM "text"
			WHERE "MDR_REPORT_KEY" IN (%s)`, placeholders), args...)
		if err != nil {
			return nil, fmt.Errorf("query narratives: %w", err)
		}
		for rows.Next() {
			var n Narrative
			if err := rows.Scan(&n.ReportKey, &n.TextTypeCode, &n.Text); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan narrative row: %w", err)
			}
			out = append(out, n)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// EventRecords materializes the master columns the event-level
// deduplication needs. Feed the result to DeduplicateEvents.
func (s *SQLite) EventRecords(ctx context.Context) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT "MDR_REPORT_KEY", COALESCE("EVENT_KEY", ''), COALESCE("DATE_RECEIVED", '')
		FROM "master"`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var r EventRecord
		if err := rows.Scan(&r.ReportKey, &r.EventKey, &r.DateReceived); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PatientRecords materializes the patient table for the concatenation
// helpers. Note the lowercase columns: the patient file ships that way.
func (s *SQLite) PatientRecords(ctx context.Context) ([]PatientRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT "mdr_report_key",
		       COALESCE("patient_sequence_number", ''),
		       COALESCE("sequence_number_outcome", '')
		FROM "patient"`)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	var out []PatientRecord
	for rows.Next() {
		var r PatientRecord
		if err := rows.Scan(&r.ReportKey, &r.SequenceNumber, &r.Outcomes); err != nil {
			return nil, fmt.Errorf("scan patient row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventTypeBreakdown tallies the master table by event type (D death,
// IN injury, M malfunction).
func (s *SQLite) EventTypeBreakdown(ctx context.Context) (Breakdown, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE("EVENT_TYPE", ''), COUNT(*)
		FROM "master"
		GROUP BY "EVENT_TYPE"`)
	if err != nil {
		return Breakdown{}, fmt.Errorf("query breakdown: %w", err)
	}
	defer rows.Close()

	var b Breakdown
	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return Breakdown{}, fmt.Errorf("scan breakdown row: %w", err)
		}
		b.Total += n
		switch typ {
		case "D":
			b.Deaths += n
		case "IN", "IL", "IJ":
			b.Injuries += n
		case "M":
			b.Malfunctions += n
		default:
			b.Other += n
		}
	}
	return b, rows.Err()
}
