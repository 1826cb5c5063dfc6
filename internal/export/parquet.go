// Package export writes loaded MAUDE data back out as Parquet, for
// researchers working in DuckDB, pandas, or Arrow rather than SQL.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/rs/zerolog"
)

const writeBatch = 10000

// EventRow is the flat Parquet projection of one master-table report.
// Optional fields use the native null bitmap, so IS NULL predicates push
// down.
type EventRow struct {
	MDRReportKey     string  `parquet:"mdr_report_key"`
	EventKey         *string `parquet:"event_key,optional"`
	ReportNumber     *string `parquet:"report_number,optional"`
	DateReceived     *string `parquet:"date_received,optional"`
	DateOfEvent      *string `parquet:"date_of_event,optional"`
	EventType        *string `parquet:"event_type,optional"`
	ManufacturerName *string `parquet:"manufacturer_name,optional"`
	AdverseEvent     *string `parquet:"adverse_event_flag,optional"`
	ProductProblem   *string `parquet:"product_problem_flag,optional"`
}

// Events exports the master table to a Parquet file and returns the row
// count.
func Events(ctx context.Context, db *sql.DB, path string, log zerolog.Logger) (int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT "MDR_REPORT_KEY", "EVENT_KEY", "REPORT_NUMBER", "DATE_RECEIVED",
		       "DATE_OF_EVENT", "EVENT_TYPE", "MANUFACTURER_NAME",
		       "ADVERSE_EVENT_FLAG", "PRODUCT_PROBLEM_FLAG"
		FROM "master"`)
	if err != nil {
		return 0, fmt.Errorf("query master: %w", err)
	}
	defer rows.Close()

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[EventRow](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.CreatedBy("maudedb", "1.0", ""),
	)

	var (
		batch []EventRow
		total int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := writer.Write(batch); err != nil {
			return fmt.Errorf("write parquet batch: %w", err)
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		var (
			row EventRow
			key sql.NullString
		)
		var opts [8]sql.NullString
		if err := rows.Scan(&key, &opts[0], &opts[1], &opts[2], &opts[3], &opts[4], &opts[5], &opts[6], &opts[7]); err != nil {
			file.Close()
			return 0, fmt.Errorf("scan master row: %w", err)
		}
		row.MDRReportKey = key.String
		row.EventKey = optString(opts[0])
		row.ReportNumber = optString(opts[1])
		row.DateReceived = optString(opts[2])
		row.DateOfEvent = optString(opts[3])
		row.EventType = optString(opts[4])
		row.ManufacturerName = optString(opts[5])
		row.AdverseEvent = optString(opts[6])
		row.ProductProblem = optString(opts[7])

		batch = append(batch, row)
		if len(batch) >= writeBatch {
			if err := flush(); err != nil {
				file.Close()
				return 0, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		file.Close()
		return 0, fmt.Errorf("read master rows: %w", err)
	}

	if err := flush(); err != nil {
		file.Close()
		return 0, err
	}
	if err := writer.Close(); err != nil {
		file.Close()
		return 0, fmt.Errorf("close parquet writer: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("close parquet file: %w", err)
	}

	log.Info().Int64("rows", total).Str("path", path).Msg("exported events")
	return total, nil
}

func optString(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	return &s
}
