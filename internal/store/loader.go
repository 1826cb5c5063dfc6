package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"maudedb/internal/extract"
	"maudedb/internal/schema"
)

// LoadError is a failed year-batch load. The batch's transaction was
// rolled back; sibling years are unaffected.
type LoadError struct {
	Table string
	Year  int
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s year %d: %v", e.Table, e.Year, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// YearLoad is the outcome of loading one year's bucket.
type YearLoad struct {
	RowsInserted int64
	Elapsed      time.Duration
	Err          error // *LoadError when the batch failed
}

// LoadResult reports a whole Load call: table creation plus one entry per
// loaded year.
type LoadResult struct {
	TableCreated bool
	Years        map[int]*YearLoad
}

// Loader performs bulk insertion of year-keyed row batches. Each year's
// batch is one transaction, committed only on full success; a year that
// fails does not stop the remaining years.
type Loader struct {
	Backend Backend
	Log     zerolog.Logger
}

// Load creates the destination table if absent and inserts the buckets in
// ascending year order, for a reproducible on-disk layout. Returns an error
// only when the table itself cannot be ensured; per-year failures land in
// the result.
func (l *Loader) Load(ctx context.Context, sc *schema.RecordSchema, rowsByYear map[int][]extract.Row) (*LoadResult, error) {
	created, err := l.Backend.EnsureTable(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("ensure table %s: %w", sc.Table, err)
	}

	res := &LoadResult{
		TableCreated: created,
		Years:        make(map[int]*YearLoad, len(rowsByYear)),
	}

	years := make([]int, 0, len(rowsByYear))
	for y := range rowsByYear {
		years = append(years, y)
	}
	sort.Ints(years)

	for _, year := range years {
		rows := rowsByYear[year]
		start := time.Now()
		yl := &YearLoad{}
		res.Years[year] = yl

		if err := l.Backend.InsertRows(ctx, sc, rows); err != nil {
			yl.Err = &LoadError{Table: sc.Table, Year: year, Err: err}
			yl.Elapsed = time.Since(start)
			l.Log.Error().Err(yl.Err).Msg("year batch rolled back")
			continue
		}

		yl.RowsInserted = int64(len(rows))
		yl.Elapsed = time.Since(start)
		l.Log.Debug().
			Str("table", sc.Table).
			Int("year", year).
			Int64("rows", yl.RowsInserted).
			Dur("elapsed", yl.Elapsed).
			Msg("year loaded")
	}

	return res, nil
}
