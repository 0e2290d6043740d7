package core

// Aggregate folds commit outcomes and skipped duplicates into a result.
//
// A skipped outcome is appended for every duplicate; duplicates never reach
// the executor. Candidates with validation errors are not part of the
// result, callers report them from the candidate list.
func Aggregate(committed []ImportOutcome, duplicates []CandidateRecord) ImportResult {
	outcomes := make([]ImportOutcome, 0, len(committed)+len(duplicates))
	outcomes = append(outcomes, committed...)
	for _, d := range duplicates {
		o := ImportOutcome{
			Index:    d.Index,
			ItemName: d.Parsed.ItemName,
			Status:   StatusSkipped,
		}
		if d.DuplicateRef != nil {
			o.Error = "duplicate of existing item " + d.DuplicateRef.ExistingID
		}
		outcomes = append(outcomes, o)
	}

	res := ImportResult{Outcomes: outcomes}
	for i := range outcomes {
		switch outcomes[i].Status {
		case StatusSuccess:
			res.Success++
		case StatusSkipped:
			res.Skipped++
		default:
			outcomes[i].Status = StatusFailed
			res.Failed++
		}
	}
	res.Total = res.Success + res.Failed + res.Skipped
	return res
}
