package core

// duplicates.go detects candidates that match already-registered items.
//
// The identity key is (itemName, servingDate, servingTimeSlot) with exact
// equality on all three. The existing-item snapshot is read once when the
// index is built; it is never refreshed mid-batch.

// duplicateKey identifies an item for duplicate detection.
type duplicateKey struct {
	name string
	date string
	slot string
}

// DuplicateIndex is a lookup over an existing-item snapshot.
type DuplicateIndex struct {
	byKey map[duplicateKey]DuplicateRef
}

// NewDuplicateIndex indexes snapshot. Items whose schedule cannot be
// resolved to a date and slot are never indexed. An item with ID excludeID
// is skipped, which lets an item being edited ignore itself. When two items
// share a key, the first one in snapshot order wins.
func NewDuplicateIndex(snapshot []ExistingItem, excludeID string) *DuplicateIndex {
	idx := &DuplicateIndex{byKey: make(map[duplicateKey]DuplicateRef, len(snapshot))}
	for _, it := range snapshot {
		if excludeID != "" && it.ID == excludeID {
			continue
		}
		date, slot, ok := ResolveSchedule(it.Schedule)
		if !ok {
			continue
		}
		k := duplicateKey{name: it.ItemName, date: date, slot: slot}
		if _, seen := idx.byKey[k]; seen {
			continue
		}
		idx.byKey[k] = DuplicateRef{ExistingID: it.ID, ExistingName: it.ItemName}
	}
	return idx
}

// Len returns the number of indexed keys.
func (d *DuplicateIndex) Len() int {
	return len(d.byKey)
}

// Match returns the existing item that p collides with, if any.
func (d *DuplicateIndex) Match(p ParsedFields) (*DuplicateRef, bool) {
	if p.ItemName == "" || p.ServingDate == "" || p.ServingTimeSlot == "" {
		return nil, false
	}
	ref, ok := d.byKey[duplicateKey{name: p.ItemName, date: p.ServingDate, slot: p.ServingTimeSlot}]
	if !ok {
		return nil, false
	}
	return &ref, true
}

// ResolveSchedule derives the serving date and slot used for matching.
// once uses Date; daily and weekly use StartDate; specific_dates uses the
// first listed date. Dates are canonicalized through ParseDate and slots
// through the label table.
func ResolveSchedule(s *ServingSchedule) (date, slot string, ok bool) {
	if s == nil {
		return "", "", false
	}

	var raw string
	switch s.Type {
	case ScheduleOnce:
		raw = s.Date
	case ScheduleDaily, ScheduleWeekly:
		raw = s.StartDate
	case ScheduleSpecificDates:
		if len(s.Dates) > 0 {
			raw = s.Dates[0]
		}
	default:
		return "", "", false
	}

	date, ok = ParseDate(raw)
	if !ok {
		return "", "", false
	}
	slot, ok = LookupLabel(FieldServingTimeSlot, s.TimeSlot)
	if !ok {
		return "", "", false
	}
	return date, slot, true
}

// MarkDuplicates flags every error-free candidate that matches snapshot.
// Candidates with errors are returned unchanged. The input slice is not
// modified.
func MarkDuplicates(cands []CandidateRecord, snapshot []ExistingItem) []CandidateRecord {
	idx := NewDuplicateIndex(snapshot, "")
	return idx.Mark(cands)
}

// Mark applies the index to cands, returning fresh copies.
func (d *DuplicateIndex) Mark(cands []CandidateRecord) []CandidateRecord {
	out := make([]CandidateRecord, len(cands))
	for i, c := range cands {
		rec := c.clone()
		rec.IsDuplicate = false
		rec.DuplicateRef = nil
		if rec.Valid() {
			if ref, ok := d.Match(rec.Parsed); ok {
				rec.IsDuplicate = true
				rec.DuplicateRef = ref
			}
		}
		out[i] = rec
	}
	return out
}

// FindDuplicate is the single-record variant used when editing one item.
func FindDuplicate(p ParsedFields, snapshot []ExistingItem, excludeID string) (*DuplicateRef, bool) {
	return NewDuplicateIndex(snapshot, excludeID).Match(p)
}

// SiblingGroup lists candidate indices within one batch that share a key.
type SiblingGroup struct {
	ItemName        string `json:"itemName"`
	ServingDate     string `json:"servingDate"`
	ServingTimeSlot string `json:"servingTimeSlot"`
	Indices         []int  `json:"indices"`
}

// SiblingDuplicates reports error-free candidates in the same batch that
// share an identity key. It is informational only; commit behavior does
// not change and both rows are still committed.
func SiblingDuplicates(cands []CandidateRecord) []SiblingGroup {
	groups := make(map[duplicateKey]*SiblingGroup)
	var order []duplicateKey

	for _, c := range cands {
		if !c.Valid() {
			continue
		}
		k := duplicateKey{name: c.Parsed.ItemName, date: c.Parsed.ServingDate, slot: c.Parsed.ServingTimeSlot}
		g, ok := groups[k]
		if !ok {
			g = &SiblingGroup{ItemName: k.name, ServingDate: k.date, ServingTimeSlot: k.slot}
			groups[k] = g
			order = append(order, k)
		}
		g.Indices = append(g.Indices, c.Index)
	}

	var out []SiblingGroup
	for _, k := range order {
		if g := groups[k]; len(g.Indices) > 1 {
			out = append(out, *g)
		}
	}
	return out
}
