package extract

import (
	"maudedb/internal/schema"
)

// Plausibility bounds for a classified year. MAUDE data starts in 1991 but
// rows occasionally carry typoed ancient or future dates; anything outside
// this window is treated as unparsable rather than opening a bucket for it.
const (
	minYear = 1900
	maxYear = 2099
)

// YearOf extracts the calendar year a row belongs to, using the schema's
// year field and format. One shared routine covers every table kind; no
// per-table parsing code is needed.
func YearOf(row Row, sc *schema.RecordSchema, lineNo int64) (int, error) {
	value := row.Get(sc, sc.YearField)
	year, ok := parseYear(value, sc.YearFormat)
	if !ok {
		return 0, &UnparsableDateError{Line: lineNo, Field: sc.YearField, Value: value}
	}
	return year, nil
}

// parseYear pulls the four-digit year out of a date value. The year may be
// a bare token or embedded in a longer date string; the format says where.
func parseYear(value, format string) (int, bool) {
	var token string
	switch format {
	case schema.FormatDateYMD:
		// 20211015 → 2021
		if len(value) != 8 {
			return 0, false
		}
		token = value[:4]
	case schema.FormatYear:
		token = value
	case schema.FormatDateSlash:
		// 10/15/2021 → 2021
		if len(value) != 10 || value[2] != '/' || value[5] != '/' {
			return 0, false
		}
		token = value[6:]
	default:
		return 0, false
	}

	if len(token) != 4 {
		return 0, false
	}
	year := 0
	for _, c := range []byte(token) {
		if c < '0' || c > '9' {
			return 0, false
		}
		year = year*10 + int(c-'0')
	}
	if year < minYear || year > maxYear {
		return 0, false
	}
	return year, true
}
