package extract

import "fmt"

// MalformedRowError marks a source line that could not be decoded into a
// Row: wrong field count, or bytes undecodable under both the primary and
// fallback encodings. Recoverable; the extractor counts and skips the row.
type MalformedRowError struct {
	Line   int64
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row at line %d: %s", e.Line, e.Reason)
}

// UnparsableDateError marks a decoded row whose year field does not yield a
// four-digit year. Recoverable; counted separately from malformed rows.
type UnparsableDateError struct {
	Line  int64
	Field string
	Value string
}

func (e *UnparsableDateError) Error() string {
	return fmt.Sprintf("unparsable date at line %d: %s=%q", e.Line, e.Field, e.Value)
}

// SourceReadError is a stream-level read failure (e.g. a truncated
// archive). Fatal to the whole extraction call.
type SourceReadError struct {
	Table string
	Line  int64
	Err   error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read %s source after line %d: %v", e.Table, e.Line, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }
