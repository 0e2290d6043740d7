package source

// textreader.go prepares CSV bytes for encoding/csv.
//
// Spreadsheets saved as CSV on Japanese Windows are usually Shift_JIS, while
// Google Sheets and recent Excel versions write UTF-8, often with a BOM.
// Both are accepted.

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText returns data as UTF-8 text.
//
// Data that is valid UTF-8 after the BOM is passed through. Otherwise a
// Shift_JIS decode is attempted and wins if it is clean. As a last resort
// invalid bytes are replaced so the CSV parser never sees them.
func decodeText(data []byte) []byte {
	body := bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(body) {
		return body
	}

	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), body)
	if err == nil && !bytes.ContainsRune(decoded, utf8.RuneError) {
		return decoded
	}

	return sanitizeUTF8(body)
}

// sanitizeUTF8 replaces each invalid byte with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
