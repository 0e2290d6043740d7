package source

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

var templateHeader = []any{
	"品物名", "カテゴリ", "数量", "単位", "提供方法", "提供日",
	"提供タイミング", "賞味期限", "保存方法", "スタッフへの申し送り",
	"残った場合の処置", "処置の条件",
}

// buildWorkbook writes sheets (name -> rows) into an in-memory .xlsx.
func buildWorkbook(t *testing.T, sheets map[string][][]any, order []string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseSpreadsheet_XLSX(t *testing.T) {
	rows := [][]any{
		templateHeader,
		{"※ 品物名は必須です"},
		{"【例】りんご", "食べ物", 1, "個", "カット", "2026/01/01", "おやつ時"},
		{"りんご", "食べ物", 2, "個", "カット", "2026/01/20", "おやつ時", "", "冷蔵"},
		{},
		{"お茶", "飲み物", "", "", "そのまま", 46043, "いつでも"},
	}
	data := buildWorkbook(t, map[string][][]any{
		"説明": {{"この表は説明です"}},
		"入力": rows,
	}, []string{"説明", "入力"})

	got, err := ParseSpreadsheet(data)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 4, got[0].Index, "index is the original row number")
	assert.Equal(t, core.SourceSpreadsheet, got[0].Source)
	assert.Equal(t, "りんご", got[0].Raw[core.FieldItemName])
	assert.Equal(t, "2", got[0].Raw[core.FieldQuantity])
	assert.Equal(t, "冷蔵", got[0].Raw[core.FieldStorageMethod])

	assert.Equal(t, 6, got[1].Index)
	assert.Equal(t, "46043", got[1].Raw[core.FieldServingDate])

	normalized := core.NormalizeAll(got)
	require.True(t, normalized[1].Valid(), "%v", normalized[1].Errors)
	assert.Equal(t, "2026-01-21", normalized[1].Parsed.ServingDate)
}

func TestParseSpreadsheet_FirstSheetFallback(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"Items": {
			templateHeader,
			{"みかん", "食べ物", 3, "個", "皮むき", "2026-02-01", "昼食時"},
		},
		"Other": {{"ignored"}},
	}, []string{"Items", "Other"})

	got, err := ParseSpreadsheet(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "みかん", got[0].Raw[core.FieldItemName])
	assert.Equal(t, 2, got[0].Index)
}

func TestParseSpreadsheet_CSV(t *testing.T) {
	csvData := "\xEF\xBB\xBF品物名,カテゴリ,提供方法,提供日,提供タイミング\n" +
		"りんご,食べ物,カット,2026/01/20,おやつ時\n" +
		",,,,\n" +
		"\"ぶどう, 種なし\",食べ物,そのまま,2026/01/21,おやつ時\n"

	got, err := ParseSpreadsheet([]byte(csvData))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "りんご", got[0].Raw[core.FieldItemName], "BOM must not leak into the header")
	assert.Equal(t, 2, got[0].Index)
	assert.Equal(t, "ぶどう, 種なし", got[1].Raw[core.FieldItemName])
	assert.Equal(t, 4, got[1].Index)
	assert.Equal(t, "", got[0].Raw[core.FieldUnit], "missing columns yield empty raw values")
}

func TestParseSpreadsheet_CSVKeepsRowNumbers(t *testing.T) {
	csvData := "品物名,カテゴリ,提供方法,提供日,提供タイミング,スタッフへの申し送り\n" +
		"りんご,食べ物,カット,2026/01/20,おやつ時,\n" +
		"\n" +
		"みかん,食べ物,皮むき,2026/01/20,おやつ時,\"1行目\n2行目\"\n" +
		"\r\n" +
		"お茶,飲み物,そのまま,2026/01/21,いつでも,\n"

	got, err := ParseSpreadsheet([]byte(csvData))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 2, got[0].Index)
	assert.Equal(t, 4, got[1].Index, "a blank row above must not shift the index")
	assert.Equal(t, "1行目\n2行目", got[1].Raw[core.FieldNoteToStaff])
	assert.Equal(t, 6, got[2].Index, "a multi-line cell is still one row")

	kept := core.Exclude(got, []int{4})
	require.Len(t, kept, 2)
	assert.Equal(t, "りんご", kept[0].Raw[core.FieldItemName])
	assert.Equal(t, "お茶", kept[1].Raw[core.FieldItemName])
}

func TestParseSpreadsheet_CSVLeadingBlankLines(t *testing.T) {
	got, err := ParseSpreadsheet([]byte("\n\n品物名,カテゴリ\nりんご,食べ物\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "りんご", got[0].Raw[core.FieldItemName])
	assert.Equal(t, 4, got[0].Index)
}

func TestParseSheetValues_FormulaFragmentCell(t *testing.T) {
	got, err := ParseSheetValues([][]any{
		{"品物名", "スタッフへの申し送り"},
		{"A", `="`},
		{"B", "="},
	}, core.SourceSheets)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "", got[0].Raw[core.FieldNoteToStaff])
	assert.Equal(t, "", got[1].Raw[core.FieldNoteToStaff])
}

func TestParseSpreadsheet_ShiftJISCSV(t *testing.T) {
	utf8CSV := "品物名,カテゴリ,提供方法,提供日,提供タイミング\nせんべい,食べ物,そのまま,2026/03/01,おやつ時\n"
	sjis, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(utf8CSV))
	require.NoError(t, err)

	got, err := ParseSpreadsheet(sjis)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "せんべい", got[0].Raw[core.FieldItemName])
}

func TestParseSpreadsheet_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty file", nil, ErrUnreadableFile},
		{"corrupt xlsx", append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0}, 64)...), ErrUnreadableFile},
		{"no name column", []byte("カテゴリ,提供日\n食べ物,2026/01/01\n"), ErrMissingHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpreadsheet(tt.data)
			assert.Nil(t, got, "no partial candidates on a fatal error")
			assert.True(t, errors.Is(err, tt.wantErr), "err = %v, want %v", err, tt.wantErr)
		})
	}
}

func TestParseSheetValues(t *testing.T) {
	values := [][]any{
		{"Item Name", "Category", "Serving Date", "Serving Time Slot", "Serving Method", "Quantity"},
		{"Banana", "food", float64(45809), "snack", "as_is", float64(2)},
		{"例:Banana", "food", float64(45809), "snack", "as_is"},
		{nil, "food"},
	}

	got, err := ParseSheetValues(values, core.SourceSheets)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.SourceSheets, got[0].Source)
	assert.Equal(t, "45809", got[0].Raw[core.FieldServingDate])
	assert.Equal(t, "2", got[0].Raw[core.FieldQuantity])

	rec := core.Normalize(got[0])
	require.True(t, rec.Valid(), "%v", rec.Errors)
	assert.Equal(t, "2025-06-01", rec.Parsed.ServingDate)
}

func TestPickSheet(t *testing.T) {
	tests := []struct {
		names  []string
		want   string
		wantOK bool
	}{
		{[]string{"説明", "入力"}, "入力", true},
		{[]string{"Guide", "Input"}, "Input", true},
		{[]string{"Data", "Other"}, "Data", true},
		{nil, "", false},
	}

	for _, tt := range tests {
		got, ok := PickSheet(tt.names)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("PickSheet(%v) = %q, %v; want %q, %v", tt.names, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{float64(46042), "46042"},
		{1.5, "1.5"},
		{true, "TRUE"},
		{7, "7"},
	}

	for _, tt := range tests {
		if got := CellString(tt.in); got != tt.want {
			t.Errorf("CellString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeText(t *testing.T) {
	assert.Equal(t, "abc", string(decodeText([]byte("\xEF\xBB\xBFabc"))))
	assert.Equal(t, "a\uFFFDb", string(sanitizeUTF8([]byte{'a', 0xFF, 'b'})))
}
