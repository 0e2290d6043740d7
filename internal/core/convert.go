package core

// convert.go provides conversion functions for untrusted cell values.
//
// These functions handle the messy reality of hand-edited spreadsheets:
//   - Full-width digits and punctuation typed with a Japanese IME
//   - Several date spellings plus raw spreadsheet date serials
//   - Excel formula prefixes (="value") and stray quotes
//
// All Parse* functions return ok=false for empty or invalid input and never
// panic, so callers can turn failures into field-level validation errors.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// ISODate is the canonical date layout stored in ParsedFields.
const ISODate = "2006-01-02"

// serialUnixOffset is the spreadsheet serial of 1970-01-01 (epoch 1899-12-30).
const serialUnixOffset = 25569

// Serial bounds accepted as dates: 1900-01-01 through 9999-12-31.
const (
	minDateSerial = 2
	maxDateSerial = 2958465
)

// numericRegex validates that a string is a plain decimal after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// Zero padding is optional in every layout.
var dateLayouts = []string{
	"2006/1/2",
	"2006-1-2",
}

// FoldWidth maps full-width ASCII (digits, letters, punctuation) to ASCII
// and half-width katakana to full-width, leaving other text untouched.
func FoldWidth(s string) string {
	return width.Fold.String(s)
}

// ParseQuantity parses a count after width folding and separator cleanup.
func ParseQuantity(s string) (float64, bool) {
	s = strings.TrimSpace(FoldWidth(s))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseDate parses YYYY/MM/DD, YYYY-MM-DD, or a spreadsheet date serial and
// returns the ISO form. Impossible calendar dates (2026/02/30) are rejected.
func ParseDate(s string) (string, bool) {
	t, ok := ParseDateTime(s)
	if !ok {
		return "", false
	}
	return t.Format(ISODate), true
}

// ParseDateTime is ParseDate returning the UTC midnight time value.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(FoldWidth(s))
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	if serial, ok := ParseQuantity(s); ok {
		return SerialToDate(serial)
	}

	return time.Time{}, false
}

// SerialToDate converts a spreadsheet date serial (days since 1899-12-30)
// to a UTC date. The fractional (time-of-day) part is discarded.
func SerialToDate(serial float64) (time.Time, bool) {
	days := math.Floor(serial)
	if days < minDateSerial || days > maxDateSerial {
		return time.Time{}, false
	}
	unixDays := int64(days) - serialUnixOffset
	return time.Unix(unixDays*86400, 0).UTC(), true
}

// FormatQuantity renders a quantity without a trailing ".0".
func FormatQuantity(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace (including full-width spaces)
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "　", " "))

	if len(s) >= 3 && strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}
