package core

import "strings"

// Normalize turns c.Raw into c.Parsed, collecting errors and warnings.
//
// The returned record is a fresh copy; c is left untouched. Any previous
// Parsed, Errors, Warnings and duplicate flags are replaced, so normalizing
// a record twice yields the same result.
func Normalize(c CandidateRecord) CandidateRecord {
	out := c.clone()
	out.Parsed = ParsedFields{}
	out.Errors = nil
	out.Warnings = nil
	out.IsDuplicate = false
	out.DuplicateRef = nil

	n := normalizer{rec: &out}

	out.Parsed.ItemName = n.text(FieldItemName)
	if out.Parsed.ItemName == "" {
		n.fail(requiredError(FieldItemName))
	}

	out.Parsed.Category = n.requiredLabel(FieldCategory)
	out.Parsed.Quantity = n.quantity()
	out.Parsed.Unit = n.unit()
	out.Parsed.ServingMethod = n.requiredLabel(FieldServingMethod)
	out.Parsed.ServingDate = n.date(FieldServingDate, true)
	out.Parsed.ServingTimeSlot = n.requiredLabel(FieldServingTimeSlot)
	out.Parsed.ExpirationDate = n.date(FieldExpirationDate, false)
	out.Parsed.StorageMethod = n.optionalLabel(FieldStorageMethod, "")
	out.Parsed.NoteToStaff = n.text(FieldNoteToStaff)
	out.Parsed.RemainingHandlingInstruction = n.optionalLabel(FieldRemainingHandlingInstruction, DefaultRemainingHandlingInstruction)
	out.Parsed.RemainingHandlingCondition = n.text(FieldRemainingHandlingCondition)

	return out
}

// NormalizeAll normalizes every candidate, preserving order.
func NormalizeAll(cands []CandidateRecord) []CandidateRecord {
	out := make([]CandidateRecord, len(cands))
	for i, c := range cands {
		out[i] = Normalize(c)
	}
	return out
}

type normalizer struct {
	rec *CandidateRecord
}

func (n normalizer) raw(field string) string {
	return strings.TrimSpace(n.rec.Raw[field])
}

func (n normalizer) fail(e ValidationError) {
	n.rec.Errors = append(n.rec.Errors, e)
}

func (n normalizer) warn(w ValidationWarning) {
	n.rec.Warnings = append(n.rec.Warnings, w)
}

func (n normalizer) text(field string) string {
	return n.raw(field)
}

func (n normalizer) requiredLabel(field string) string {
	v := n.raw(field)
	if v == "" {
		n.fail(requiredError(field))
		return ""
	}
	code, ok := LookupLabel(field, v)
	if !ok {
		n.fail(ValidationError{Field: field, Message: msgUnknownLabel(v)})
		return ""
	}
	return code
}

// optionalLabel returns def when the field is blank and an error when the
// value is present but not in the label table.
func (n normalizer) optionalLabel(field, def string) string {
	v := n.raw(field)
	if v == "" {
		return def
	}
	code, ok := LookupLabel(field, v)
	if !ok {
		n.fail(ValidationError{Field: field, Message: msgUnknownLabel(v)})
		return def
	}
	return code
}

func (n normalizer) quantity() *float64 {
	v := n.raw(FieldQuantity)
	if v == "" {
		return nil
	}
	q, ok := ParseQuantity(v)
	if !ok || q < 1 {
		n.fail(ValidationError{Field: FieldQuantity, Message: msgInvalidCount})
		return nil
	}
	return &q
}

func (n normalizer) unit() string {
	v := n.raw(FieldUnit)
	if v == "" {
		return DefaultUnit
	}
	code, ok := LookupLabel(FieldUnit, v)
	if !ok {
		n.warn(ValidationWarning{
			Field:          FieldUnit,
			Message:        msgUnknownUnit,
			OriginalValue:  v,
			CorrectedValue: DefaultUnit,
		})
		return DefaultUnit
	}
	return code
}

func (n normalizer) date(field string, required bool) string {
	v := n.raw(field)
	if v == "" {
		if required {
			n.fail(requiredError(field))
		}
		return ""
	}
	d, ok := ParseDate(v)
	if !ok {
		n.fail(ValidationError{Field: field, Message: msgInvalidDate})
		return ""
	}
	return d
}
