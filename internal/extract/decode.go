package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"maudedb/internal/schema"
)

// Row is one decoded source record: field values positionally parallel to
// the schema's column list. Empty fields load as SQL NULL. Rows are never
// mutated after decode.
type Row []string

// Get returns the value of a named column, or "" if the schema does not
// carry the column.
func (r Row) Get(sc *schema.RecordSchema, col string) string {
	idx := sc.ColumnIndex(col)
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return r[idx]
}

// DecodeLine parses one raw source line into a Row. The line is first
// validated as UTF-8; on failure the schema's fallback encoding is tried
// before the row is rejected with a MalformedRowError.
func DecodeLine(line string, sc *schema.RecordSchema, lineNo int64) (Row, error) {
	line = strings.TrimSuffix(line, "\r")

	if !utf8.ValidString(line) {
		if sc.Fallback == nil {
			return nil, &MalformedRowError{Line: lineNo, Reason: "invalid UTF-8 and no fallback encoding"}
		}
		decoded, err := sc.Fallback.NewDecoder().String(line)
		if err != nil || strings.ContainsRune(decoded, utf8.RuneError) {
			return nil, &MalformedRowError{Line: lineNo, Reason: "undecodable under primary and fallback encoding"}
		}
		line = decoded
	}

	fields := strings.Split(line, string(sc.Delimiter))

	// FDA files frequently carry a trailing delimiter.
	if len(fields) == sc.NumColumns()+1 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}

	if len(fields) != sc.NumColumns() {
		return nil, &MalformedRowError{
			Line:   lineNo,
			Reason: fmt.Sprintf("got %d fields, want %d", len(fields), sc.NumColumns()),
		}
	}

	return Row(fields), nil
}

// isHeader reports whether a raw line is the file's header row, which every
// MAUDE file opens with. Compared case-insensitively since header casing
// drifts across vintages.
func isHeader(line string, sc *schema.RecordSchema) bool {
	first, _, _ := strings.Cut(strings.TrimSuffix(line, "\r"), string(sc.Delimiter))
	return strings.EqualFold(strings.TrimSpace(first), sc.Columns[0])
}
