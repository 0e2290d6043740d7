package service

import (
	"context"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

// DuplicateCheck is the result of CheckDuplicate.
type DuplicateCheck struct {
	IsDuplicate  bool               `json:"isDuplicate"`
	DuplicateRef *core.DuplicateRef `json:"duplicateRef,omitempty"`
}

// CheckDuplicate runs the single-record duplicate check used when editing
// an item. excludeID is the item being edited, so it never matches itself.
// The fields are normalized first so labels and loose dates resolve the same
// way they do in a bulk import; only errors on the key fields block the check.
func (s *Service) CheckDuplicate(ctx context.Context, residentID string, raw map[string]string, excludeID string) (*DuplicateCheck, error) {
	a, err := s.begin(ctx, residentID, "", "duplicate_check")
	if err != nil {
		return nil, err
	}

	rec := core.Normalize(core.CandidateRecord{Raw: raw})
	for _, f := range []string{core.FieldItemName, core.FieldServingDate, core.FieldServingTimeSlot} {
		if errs := rec.FieldErrors(f); len(errs) > 0 {
			return nil, errs[0]
		}
	}

	snapshot, err := s.store.Snapshot(ctx, a.residentID)
	if err != nil {
		return nil, err
	}

	ref, dup := core.FindDuplicate(rec.Parsed, snapshot, excludeID)
	a.log.Debug("duplicate check", "item", rec.Parsed.ItemName, "duplicate", dup)
	return &DuplicateCheck{IsDuplicate: dup, DuplicateRef: ref}, nil
}
