// Package core provides the business logic for bulk care-item imports.
// This package has no transport or storage dependencies.
package core

import (
	"context"
	"sort"
)

// Canonical field names. These are the keys of CandidateRecord.Raw and the
// Field values reported in validation errors and warnings.
const (
	FieldItemName                     = "itemName"
	FieldCategory                     = "category"
	FieldQuantity                     = "quantity"
	FieldUnit                         = "unit"
	FieldServingMethod                = "servingMethod"
	FieldServingDate                  = "servingDate"
	FieldServingTimeSlot              = "servingTimeSlot"
	FieldExpirationDate               = "expirationDate"
	FieldStorageMethod                = "storageMethod"
	FieldNoteToStaff                  = "noteToStaff"
	FieldRemainingHandlingInstruction = "remainingHandlingInstruction"
	FieldRemainingHandlingCondition   = "remainingHandlingCondition"
)

// SourceKind identifies where a candidate came from.
type SourceKind string

const (
	SourceSpreadsheet SourceKind = "spreadsheet"
	SourceSheets      SourceKind = "google_sheets"
	SourceImage       SourceKind = "image"
)

// Confidence is the extraction confidence tag attached to image-sourced items.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParsedFields is the canonical item record produced by the normalizer.
// Dates are ISO (YYYY-MM-DD) strings; enum fields hold canonical codes.
type ParsedFields struct {
	ItemName                     string   `json:"itemName"`
	Category                     string   `json:"category"`
	Quantity                     *float64 `json:"quantity,omitempty"` // nil: not tracked by count
	Unit                         string   `json:"unit"`
	ServingMethod                string   `json:"servingMethod"`
	ServingDate                  string   `json:"servingDate"`
	ServingTimeSlot              string   `json:"servingTimeSlot"`
	ExpirationDate               string   `json:"expirationDate,omitempty"`
	StorageMethod                string   `json:"storageMethod,omitempty"`
	NoteToStaff                  string   `json:"noteToStaff,omitempty"`
	RemainingHandlingInstruction string   `json:"remainingHandlingInstruction"`
	RemainingHandlingCondition   string   `json:"remainingHandlingCondition,omitempty"`
}

// ValidationWarning records a non-blocking auto-correction.
type ValidationWarning struct {
	Field          string `json:"field"`
	Message        string `json:"message"`
	OriginalValue  string `json:"originalValue"`
	CorrectedValue string `json:"correctedValue"`
}

// DuplicateRef points at the existing item a candidate collides with.
type DuplicateRef struct {
	ExistingID   string `json:"existingId"`
	ExistingName string `json:"existingName"`
}

// CandidateRecord is one prospective item parsed from bulk input.
//
// Index is the 1-based row in the source file for spreadsheets (header row = 1)
// and the 0-based position in the extraction response for images. It is the
// stable handle used for user-facing references and exclusion.
type CandidateRecord struct {
	Index        int                 `json:"index"`
	Source       SourceKind          `json:"source"`
	Raw          map[string]string   `json:"raw"`
	Parsed       ParsedFields        `json:"parsed"`
	Errors       []ValidationError   `json:"errors"`
	Warnings     []ValidationWarning `json:"warnings"`
	IsDuplicate  bool                `json:"isDuplicate"`
	DuplicateRef *DuplicateRef       `json:"duplicateRef,omitempty"`
	Confidence   Confidence          `json:"confidence,omitempty"`
}

// Valid reports whether the record carries no validation errors.
func (c CandidateRecord) Valid() bool {
	return len(c.Errors) == 0
}

// clone returns a copy that shares no maps or slices with c.
func (c CandidateRecord) clone() CandidateRecord {
	out := c
	if c.Raw != nil {
		out.Raw = make(map[string]string, len(c.Raw))
		for k, v := range c.Raw {
			out.Raw[k] = v
		}
	}
	out.Errors = append([]ValidationError(nil), c.Errors...)
	out.Warnings = append([]ValidationWarning(nil), c.Warnings...)
	if c.Parsed.Quantity != nil {
		q := *c.Parsed.Quantity
		out.Parsed.Quantity = &q
	}
	if c.DuplicateRef != nil {
		ref := *c.DuplicateRef
		out.DuplicateRef = &ref
	}
	return out
}

// ScheduleType is the shape of an existing item's serving schedule.
type ScheduleType string

const (
	ScheduleOnce          ScheduleType = "once"
	ScheduleDaily         ScheduleType = "daily"
	ScheduleWeekly        ScheduleType = "weekly"
	ScheduleSpecificDates ScheduleType = "specific_dates"
)

// ServingSchedule describes when an already-registered item is served.
type ServingSchedule struct {
	Type      ScheduleType `json:"type"`
	Date      string       `json:"date,omitempty"`      // once
	StartDate string       `json:"startDate,omitempty"` // daily, weekly
	Dates     []string     `json:"dates,omitempty"`     // specific_dates
	TimeSlot  string       `json:"timeSlot,omitempty"`
}

// ExistingItem is one entry of the read-only snapshot of registered items.
type ExistingItem struct {
	ID       string           `json:"id"`
	ItemName string           `json:"itemName"`
	Schedule *ServingSchedule `json:"schedule,omitempty"`
}

// OutcomeStatus is the terminal status of a candidate after an import attempt.
type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusFailed  OutcomeStatus = "failed"
	StatusSkipped OutcomeStatus = "skipped"
)

// ImportOutcome is the per-row result of an import attempt.
type ImportOutcome struct {
	Index       int           `json:"index"`
	ItemName    string        `json:"itemName"`
	Status      OutcomeStatus `json:"status"`
	CommittedID string        `json:"committedId,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// ImportResult summarizes an import attempt.
// Total == Success + Failed + Skipped == len(Outcomes).
type ImportResult struct {
	Total    int             `json:"total"`
	Success  int             `json:"success"`
	Failed   int             `json:"failed"`
	Skipped  int             `json:"skipped"`
	Outcomes []ImportOutcome `json:"outcomes"`
}

// SortByIndex orders Outcomes by candidate index. Commit completion order
// is unspecified, so callers that display rows should sort first.
func (r *ImportResult) SortByIndex() {
	sort.SliceStable(r.Outcomes, func(i, j int) bool {
		return r.Outcomes[i].Index < r.Outcomes[j].Index
	})
}

// CommitReceipt is what the persistence collaborator returns on success.
type CommitReceipt struct {
	CommittedID string
}

// CommitFunc persists a single candidate. It is called concurrently and must
// be safe for that; a returned error (or a panic) marks only that item failed.
type CommitFunc func(ctx context.Context, c CandidateRecord) (CommitReceipt, error)
