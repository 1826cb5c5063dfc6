// Package store persists decoded MAUDE rows into a relational database and
// exposes the import façade plus the read-side helpers researchers use on
// the loaded data.
package store

import (
	"context"

	"maudedb/internal/extract"
	"maudedb/internal/schema"
)

// Backend is a relational destination for row batches. Implementations
// must preserve the schema's column casing verbatim (patient is lowercase,
// the rest uppercase; published SQL depends on it) and must make InsertRows
// all-or-nothing: a failure partway through a batch leaves none of its rows
// visible.
//
// The backend is the sole writer to the destination; concurrent writers
// are serialized by the store's own locking, no extra layer here.
type Backend interface {
	// EnsureTable creates the destination table for a schema if absent and
	// reports whether it created it.
	EnsureTable(ctx context.Context, sc *schema.RecordSchema) (created bool, err error)

	// InsertRows inserts one batch inside a single transaction. Empty
	// field values are stored as NULL. No deduplication is performed:
	// reloading a year appends.
	InsertRows(ctx context.Context, sc *schema.RecordSchema, rows []extract.Row) error

	// HasRows reports whether the destination table already contains data.
	// False if the table does not exist yet.
	HasRows(ctx context.Context, sc *schema.RecordSchema) (bool, error)

	// EnsureIndexes creates the schema's documented query indexes.
	EnsureIndexes(ctx context.Context, sc *schema.RecordSchema) error

	Close() error
}

// rowArgs converts a decoded row to insert arguments, mapping empty fields
// to NULL.
func rowArgs(row extract.Row) []any {
	args := make([]any, len(row))
	for i, v := range row {
		if v == "" {
			args[i] = nil
		} else {
			args[i] = v
		}
	}
	return args
}
