package core

import "context"

// Prepared is the outcome of the pre-commit stages for one import attempt.
type Prepared struct {
	Candidates []CandidateRecord // every candidate, in source order
	Valid      []CandidateRecord // error-free, not duplicates
	Duplicates []CandidateRecord // error-free, matching the snapshot
	Invalid    []CandidateRecord // one or more validation errors
	Siblings   []SiblingGroup    // in-batch key collisions, display only
}

// Summary counts candidates by state.
type Summary struct {
	Total      int `json:"total"`
	Valid      int `json:"valid"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
	Warnings   int `json:"warnings"`
}

// Summary returns the per-state counts of p.
func (p Prepared) Summary() Summary {
	s := Summary{
		Total:      len(p.Candidates),
		Valid:      len(p.Valid),
		Duplicates: len(p.Duplicates),
		Invalid:    len(p.Invalid),
	}
	for _, c := range p.Candidates {
		if len(c.Warnings) > 0 {
			s.Warnings++
		}
	}
	return s
}

// Pipeline bundles normalization, duplicate detection, commit and
// aggregation. It holds no state between calls.
type Pipeline struct {
	Executor Executor
}

// Prepare normalizes cands, marks duplicates against snapshot and splits
// the result by state.
func (p Pipeline) Prepare(cands []CandidateRecord, snapshot []ExistingItem) Prepared {
	marked := MarkDuplicates(NormalizeAll(cands), snapshot)
	return Partition(marked)
}

// Partition splits already-processed candidates by state.
func Partition(cands []CandidateRecord) Prepared {
	out := Prepared{Candidates: cands}
	for _, c := range cands {
		switch {
		case !c.Valid():
			out.Invalid = append(out.Invalid, c)
		case c.IsDuplicate:
			out.Duplicates = append(out.Duplicates, c)
		default:
			out.Valid = append(out.Valid, c)
		}
	}
	out.Siblings = SiblingDuplicates(cands)
	return out
}

// Run commits the valid set with fn and folds in the duplicates.
func (p Pipeline) Run(ctx context.Context, prepared Prepared, fn CommitFunc) ImportResult {
	committed := p.Executor.Commit(ctx, prepared.Valid, fn)
	return Aggregate(committed, prepared.Duplicates)
}

// Exclude drops candidates whose Index is listed in indices.
func Exclude(cands []CandidateRecord, indices []int) []CandidateRecord {
	if len(indices) == 0 {
		return cands
	}
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		drop[i] = struct{}{}
	}
	out := make([]CandidateRecord, 0, len(cands))
	for _, c := range cands {
		if _, ok := drop[c.Index]; !ok {
			out = append(out, c)
		}
	}
	return out
}
