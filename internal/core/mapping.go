package core

// mapping.go holds the single declarative table of label/enum correspondences.
//
// The normalizer never branches on a specific field's vocabulary; it asks
// the table. Each entry lists the canonical code and the labels users type
// in spreadsheets. The code itself is always an accepted label, so exports
// and API clients can send canonical values directly.

import (
	"strings"
	"sync"
)

// Defaults substituted when an optional field is blank.
const (
	DefaultUnit                         = "個"
	DefaultServingMethod                = "as_is"
	DefaultRemainingHandlingInstruction = "none"
)

// LabelEntry maps the labels of one enum value to its canonical code.
type LabelEntry struct {
	Field  string
	Code   string
	Labels []string
}

// Labels is the complete label table.
var Labels = []LabelEntry{
	{Field: FieldCategory, Code: "food", Labels: []string{"食べ物", "食品"}},
	{Field: FieldCategory, Code: "drink", Labels: []string{"飲み物", "飲料"}},

	{Field: FieldServingMethod, Code: "as_is", Labels: []string{"そのまま"}},
	{Field: FieldServingMethod, Code: "cut", Labels: []string{"カット", "切る"}},
	{Field: FieldServingMethod, Code: "peeled", Labels: []string{"皮むき", "皮をむく"}},
	{Field: FieldServingMethod, Code: "heated", Labels: []string{"温める"}},
	{Field: FieldServingMethod, Code: "cooled", Labels: []string{"冷やす"}},
	{Field: FieldServingMethod, Code: "blended", Labels: []string{"ミキサー"}},
	{Field: FieldServingMethod, Code: "other", Labels: []string{"その他"}},

	{Field: FieldServingTimeSlot, Code: "breakfast", Labels: []string{"朝食時", "朝食"}},
	{Field: FieldServingTimeSlot, Code: "lunch", Labels: []string{"昼食時", "昼食"}},
	{Field: FieldServingTimeSlot, Code: "dinner", Labels: []string{"夕食時", "夕食"}},
	{Field: FieldServingTimeSlot, Code: "snack", Labels: []string{"おやつ時", "おやつ"}},
	{Field: FieldServingTimeSlot, Code: "anytime", Labels: []string{"いつでも"}},

	{Field: FieldStorageMethod, Code: "room_temp", Labels: []string{"常温"}},
	{Field: FieldStorageMethod, Code: "refrigerated", Labels: []string{"冷蔵"}},
	{Field: FieldStorageMethod, Code: "frozen", Labels: []string{"冷凍"}},

	{Field: FieldRemainingHandlingInstruction, Code: "none", Labels: []string{"指示なし", "なし"}},
	{Field: FieldRemainingHandlingInstruction, Code: "discarded", Labels: []string{"破棄してください", "破棄"}},
	{Field: FieldRemainingHandlingInstruction, Code: "stored", Labels: []string{"保存してください", "保存"}},

	{Field: FieldUnit, Code: "個"},
	{Field: FieldUnit, Code: "本"},
	{Field: FieldUnit, Code: "枚"},
	{Field: FieldUnit, Code: "袋"},
	{Field: FieldUnit, Code: "箱"},
	{Field: FieldUnit, Code: "パック"},
	{Field: FieldUnit, Code: "缶"},
	{Field: FieldUnit, Code: "切れ"},
	{Field: FieldUnit, Code: "房"},
	{Field: FieldUnit, Code: "杯"},
	{Field: FieldUnit, Code: "g"},
	{Field: FieldUnit, Code: "ml"},
}

var (
	labelIndexOnce sync.Once
	labelIndex     map[string]map[string]string // field -> label -> code
)

func buildLabelIndex() {
	labelIndex = make(map[string]map[string]string)
	for _, e := range Labels {
		m, ok := labelIndex[e.Field]
		if !ok {
			m = make(map[string]string)
			labelIndex[e.Field] = m
		}
		m[e.Code] = e.Code
		for _, l := range e.Labels {
			m[l] = e.Code
		}
	}
}

// LookupLabel maps a user-supplied label to its canonical code for field.
// Matching is exact after trimming and width folding (full-width ASCII
// becomes ASCII), so "ｆｏｏｄ" and "food" resolve alike but "Food" does not.
func LookupLabel(field, label string) (string, bool) {
	labelIndexOnce.Do(buildLabelIndex)

	key := FoldWidth(strings.TrimSpace(label))
	if key == "" {
		return "", false
	}
	code, ok := labelIndex[field][key]
	return code, ok
}

// Codes returns the canonical codes defined for field, in table order.
func Codes(field string) []string {
	var codes []string
	for _, e := range Labels {
		if e.Field == field {
			codes = append(codes, e.Code)
		}
	}
	return codes
}

// Column describes one column of the bulk import template.
type Column struct {
	Field   string // Canonical field name
	Header  string // Header label in the template
	Alias   string // English header also accepted
	Require bool   // Marked required in the template
}

// Columns is the template column layout, in file order.
var Columns = []Column{
	{Field: FieldItemName, Header: "品物名", Alias: "Item Name", Require: true},
	{Field: FieldCategory, Header: "カテゴリ", Alias: "Category", Require: true},
	{Field: FieldQuantity, Header: "数量", Alias: "Quantity"},
	{Field: FieldUnit, Header: "単位", Alias: "Unit"},
	{Field: FieldServingMethod, Header: "提供方法", Alias: "Serving Method", Require: true},
	{Field: FieldServingDate, Header: "提供日", Alias: "Serving Date", Require: true},
	{Field: FieldServingTimeSlot, Header: "提供タイミング", Alias: "Serving Time Slot", Require: true},
	{Field: FieldExpirationDate, Header: "賞味期限", Alias: "Expiration Date"},
	{Field: FieldStorageMethod, Header: "保存方法", Alias: "Storage Method"},
	{Field: FieldNoteToStaff, Header: "スタッフへの申し送り", Alias: "Note To Staff"},
	{Field: FieldRemainingHandlingInstruction, Header: "残った場合の処置", Alias: "Remaining Handling"},
	{Field: FieldRemainingHandlingCondition, Header: "処置の条件", Alias: "Remaining Handling Condition"},
}

// ColumnForHeader resolves a header cell to a canonical field name.
// Accepts the template label, the English alias, or the field name itself,
// ignoring case and a trailing required marker ("*", "(必須)").
func ColumnForHeader(header string) (string, bool) {
	h := strings.TrimSpace(FoldWidth(CleanCell(header)))
	h = strings.TrimSuffix(h, "(必須)")
	h = strings.TrimSuffix(h, "*")
	h = strings.TrimSpace(h)
	if h == "" {
		return "", false
	}
	for _, col := range Columns {
		if h == col.Header || strings.EqualFold(h, col.Alias) || strings.EqualFold(h, col.Field) {
			return col.Field, true
		}
	}
	return "", false
}
