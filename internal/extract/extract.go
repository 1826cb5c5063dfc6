package extract

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"maudedb/internal/schema"
)

// Narrative fields in foitext run long; size the scanner for them rather
// than bufio's 64KB default.
const (
	scanBufSize = 256 * 1024
	maxLineSize = 4 * 1024 * 1024
)

const progressInterval = 5 * time.Second

// Stats are the per-pass diagnostics: every line read, and every row
// skipped, is accounted for. Skips never abort a pass.
type Stats struct {
	LinesRead      int64
	Malformed      int64
	UnparsableYear int64
}

// Result maps each requested year to its accumulated rows. Every requested
// year is present, empty or not.
type Result struct {
	Buckets map[int][]Row
	Stats   Stats
}

// Extractor streams one table kind's source and partitions rows by year.
type Extractor struct {
	Schema *schema.RecordSchema
	Log    zerolog.Logger
}

// Extract reads the source exactly once and fills one bucket per requested
// year. Rows for years nobody asked for are discarded immediately, so peak
// memory is bounded by the requested years' rows, not the file. A bucket is
// only complete when the pass finishes: cumulative files are not sorted by
// year, so no bucket may be flushed early.
//
// Per-row decode and classification failures are counted in the result;
// only a stream-level read failure (or context cancellation) aborts the
// call, as a SourceReadError.
func (e *Extractor) Extract(ctx context.Context, src io.Reader, years []int) (*Result, error) {
	res := &Result{Buckets: make(map[int][]Row, len(years))}

	// Open all buckets up front so requested years with no source rows
	// still report an explicit empty result.
	requested := make(map[int]bool, len(years))
	for _, y := range years {
		requested[y] = true
		res.Buckets[y] = []Row{}
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, scanBufSize), maxLineSize)

	start := time.Now()
	lastLog := start

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, &SourceReadError{Table: e.Schema.Table, Line: res.Stats.LinesRead, Err: err}
		}

		line := scanner.Text()
		res.Stats.LinesRead++

		if res.Stats.LinesRead == 1 && isHeader(line, e.Schema) {
			continue
		}

		row, err := DecodeLine(line, e.Schema, res.Stats.LinesRead)
		if err != nil {
			res.Stats.Malformed++
			continue
		}

		year, err := YearOf(row, e.Schema, res.Stats.LinesRead)
		if err != nil {
			res.Stats.UnparsableYear++
			continue
		}

		if requested[year] {
			res.Buckets[year] = append(res.Buckets[year], row)
		}

		if time.Since(lastLog) >= progressInterval {
			e.Log.Info().
				Str("table", e.Schema.Table).
				Int64("lines", res.Stats.LinesRead).
				Float64("lines_per_sec", float64(res.Stats.LinesRead)/time.Since(start).Seconds()).
				Msg("extraction progress")
			lastLog = time.Now()
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, &SourceReadError{Table: e.Schema.Table, Line: res.Stats.LinesRead, Err: err}
	}

	return res, nil
}

// DecodeAll is the single-year path for non-cumulative table kinds: the
// whole file belongs to one year, so rows are decoded without year
// classification.
func (e *Extractor) DecodeAll(ctx context.Context, src io.Reader) ([]Row, Stats, error) {
	var (
		rows  []Row
		stats Stats
	)

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, scanBufSize), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, stats, &SourceReadError{Table: e.Schema.Table, Line: stats.LinesRead, Err: err}
		}

		line := scanner.Text()
		stats.LinesRead++

		if stats.LinesRead == 1 && isHeader(line, e.Schema) {
			continue
		}

		row, err := DecodeLine(line, e.Schema, stats.LinesRead)
		if err != nil {
			stats.Malformed++
			continue
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, &SourceReadError{Table: e.Schema.Table, Line: stats.LinesRead, Err: err}
	}

	return rows, stats, nil
}
