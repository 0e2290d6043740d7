// Package source converts raw bulk input into core.CandidateRecord values.
//
// Three adapters feed the same pipeline:
//
//   - ParseSpreadsheet: uploaded .xlsx or .csv bytes
//   - SheetsReader: a Google Sheets spreadsheet read through the Sheets API
//   - Extractor + FromExtraction: items read from a photo of a handwritten
//     or printed list by a vision model
//
// Adapters only locate rows and copy cell text into CandidateRecord.Raw;
// label mapping and validation happen in core.Normalize.
package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

// Sheet and row conventions of the import template.
const (
	InputSheetName = "入力"
	GuideMarker    = "※"
)

// SamplePrefixes mark example rows shipped in the template.
var SamplePrefixes = []string{"【例】", "例:", "例："}

var zipMagic = []byte("PK\x03\x04")

// IsXLSX reports whether data looks like an Office Open XML workbook.
func IsXLSX(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// ParseSpreadsheet reads an .xlsx workbook or a .csv file into candidates.
// The format is detected from content, not from the file name.
func ParseSpreadsheet(data []byte) ([]core.CandidateRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnreadableFile)
	}

	var (
		values [][]any
		err    error
	)
	if IsXLSX(data) {
		values, err = readXLSX(data)
	} else {
		values, err = readCSV(data)
	}
	if err != nil {
		return nil, err
	}

	return ParseSheetValues(values, core.SourceSpreadsheet)
}

func readXLSX(data []byte) ([][]any, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	sheet, ok := PickSheet(f.GetSheetList())
	if !ok {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnreadableFile)
	}

	// Raw values keep date cells as serial numbers regardless of the
	// display format the author chose.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrUnreadableFile, sheet, err)
	}

	return stringRows(rows), nil
}

// readCSV returns one grid row per spreadsheet row. encoding/csv drops
// blank lines, so they are restored as empty rows to keep row numbers
// aligned with what the user sees when opening the file.
func readCSV(data []byte) ([][]any, error) {
	r := csv.NewReader(bytes.NewReader(decodeText(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]any
	embedded := 0 // line breaks inside quoted fields so far
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		}

		line, _ := r.FieldPos(0)
		for len(rows) < line-embedded-1 {
			rows = append(rows, []any{})
		}

		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
			embedded += strings.Count(v, "\n")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringRows(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		out[i] = vals
	}
	return out
}

// PickSheet selects the designated input sheet, falling back to the first.
func PickSheet(names []string) (string, bool) {
	if len(names) == 0 {
		return "", false
	}
	for _, n := range names {
		t := strings.TrimSpace(n)
		if t == InputSheetName || strings.EqualFold(t, "input") {
			return n, true
		}
	}
	return names[0], true
}

// ParseSheetValues walks a grid of sheet values and returns
// one candidate per item row. The header is the first row with any text;
// blank rows above it are tolerated. Index is the 1-based row number in the
// grid, kept even when earlier rows are skipped.
//
// Rows are skipped when the item name is empty, starts with GuideMarker, or
// starts with one of SamplePrefixes. Unknown columns are ignored.
func ParseSheetValues(values [][]any, src core.SourceKind) ([]core.CandidateRecord, error) {
	header := headerRow(values)
	if header < 0 {
		return nil, fmt.Errorf("%w %s", ErrMissingHeader, nameHeader())
	}

	columns := make(map[string]int)
	for pos, cell := range values[header] {
		field, ok := core.ColumnForHeader(CellString(cell))
		if !ok {
			continue
		}
		if _, dup := columns[field]; !dup {
			columns[field] = pos
		}
	}
	if _, ok := columns[core.FieldItemName]; !ok {
		return nil, fmt.Errorf("%w %s", ErrMissingHeader, nameHeader())
	}

	var out []core.CandidateRecord
	for i, row := range values[header+1:] {
		raw := make(map[string]string, len(columns))
		for field, pos := range columns {
			if pos < len(row) {
				raw[field] = core.CleanCell(CellString(row[pos]))
			} else {
				raw[field] = ""
			}
		}

		if skipRow(raw[core.FieldItemName]) {
			continue
		}

		out = append(out, core.CandidateRecord{
			Index:  header + i + 2,
			Source: src,
			Raw:    raw,
		})
	}

	return out, nil
}

// headerRow returns the position of the first row with a non-blank cell,
// or -1 when the grid is empty.
func headerRow(values [][]any) int {
	for i, row := range values {
		for _, cell := range row {
			if strings.TrimSpace(CellString(cell)) != "" {
				return i
			}
		}
	}
	return -1
}

func skipRow(name string) bool {
	if name == "" || strings.HasPrefix(name, GuideMarker) {
		return true
	}
	for _, p := range SamplePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func nameHeader() string {
	for _, c := range core.Columns {
		if c.Field == core.FieldItemName {
			return c.Header
		}
	}
	return core.FieldItemName
}

// CellString renders a grid cell as text. Sheets API cells arrive as
// string, float64 or bool; numbers are printed without exponent so date
// serials survive.
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(t)
	}
}
