package service

import (
	"context"
	"time"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/source"
)

// PreviewRequest asks for a dry run over an uploaded spreadsheet.
type PreviewRequest struct {
	ResidentID string
	FileName   string
	Data       []byte
	Exclude    []int
}

// ImportRequest asks for an import. Exactly one of Data, SpreadsheetID or
// Items is used depending on the method called.
type ImportRequest struct {
	ResidentID    string
	UserID        string
	FileName      string
	Data          []byte
	SpreadsheetID string
	Items         []source.ExtractedItem
	Exclude       []int
}

// Preview is the result of a dry run.
type Preview struct {
	ImportID   string                  `json:"importId"`
	Source     core.SourceKind         `json:"source"`
	Candidates []core.CandidateRecord  `json:"candidates"`
	Summary    core.Summary            `json:"summary"`
	Siblings   []core.SiblingGroup     `json:"siblings,omitempty"`
	Items      []source.ExtractedItem  `json:"items,omitempty"`
	Extraction *source.ExtractMetadata `json:"extraction,omitempty"`
}

// ImportReport is the result of an import attempt. Candidates carries the
// invalid records with their errors, which are not part of Result.
type ImportReport struct {
	ImportID   string                 `json:"importId"`
	Source     core.SourceKind        `json:"source"`
	Summary    core.Summary           `json:"summary"`
	Candidates []core.CandidateRecord `json:"candidates"`
	Result     core.ImportResult      `json:"result"`
	Duration   time.Duration          `json:"durationNs"`
	Demo       bool                   `json:"demo,omitempty"`
}

func newPreview(a *attempt, p core.Prepared) *Preview {
	return &Preview{
		ImportID:   a.id,
		Source:     a.source,
		Candidates: nonNil(p.Candidates),
		Summary:    p.Summary(),
		Siblings:   p.Siblings,
	}
}

func nonNil(c []core.CandidateRecord) []core.CandidateRecord {
	if c == nil {
		return []core.CandidateRecord{}
	}
	return c
}

// PreviewSpreadsheet parses an uploaded .xlsx or .csv file and reports every
// candidate with its validation and duplicate state.
func (s *Service) PreviewSpreadsheet(ctx context.Context, req PreviewRequest) (*Preview, error) {
	a, err := s.begin(ctx, req.ResidentID, core.SourceSpreadsheet, "preview")
	if err != nil {
		return nil, err
	}
	cands, err := s.readSpreadsheet(a, req.FileName, req.Data)
	if err != nil {
		return nil, err
	}
	prepared, err := s.prepare(ctx, a, cands, req.Exclude)
	if err != nil {
		return nil, err
	}
	return newPreview(a, prepared), nil
}

// PreviewSheet reads a hosted spreadsheet and reports its candidates.
func (s *Service) PreviewSheet(ctx context.Context, residentID, spreadsheetID string, exclude []int) (*Preview, error) {
	a, err := s.begin(ctx, residentID, core.SourceSheets, "preview")
	if err != nil {
		return nil, err
	}
	cands, err := s.readSheet(ctx, a, spreadsheetID)
	if err != nil {
		return nil, err
	}
	prepared, err := s.prepare(ctx, a, cands, exclude)
	if err != nil {
		return nil, err
	}
	return newPreview(a, prepared), nil
}

// PreviewImage extracts items from a photo of a handwritten or printed list.
// The extracted items are echoed back so the client can review them and
// post them to ImportItems without a second extraction call. An image with
// no readable items yields an empty preview, not an error.
func (s *Service) PreviewImage(ctx context.Context, residentID, mimeType string, data []byte) (*Preview, error) {
	a, err := s.begin(ctx, residentID, core.SourceImage, "preview")
	if err != nil {
		return nil, err
	}
	if s.extractor == nil {
		return nil, s.sourceError(a, source.ErrExtractionFailed)
	}
	if err := source.ValidateImage(mimeType, int64(len(data)), s.cfg.MaxImageBytes); err != nil {
		return nil, s.sourceError(a, err)
	}

	resp, err := s.extractor.Extract(ctx, source.ExtractRequest{Image: data, MimeType: mimeType})
	if err != nil {
		return nil, s.sourceError(a, err)
	}

	prepared, err := s.prepare(ctx, a, source.FromExtraction(resp), nil)
	if err != nil {
		return nil, err
	}
	p := newPreview(a, prepared)
	p.Items = resp.Items
	p.Extraction = &resp.Metadata
	return p, nil
}

// ImportSpreadsheet parses an uploaded file and commits its valid,
// non-duplicate rows.
func (s *Service) ImportSpreadsheet(ctx context.Context, req ImportRequest) (*ImportReport, error) {
	a, err := s.begin(ctx, req.ResidentID, core.SourceSpreadsheet, "import")
	if err != nil {
		return nil, err
	}
	cands, err := s.readSpreadsheet(a, req.FileName, req.Data)
	if err != nil {
		return nil, err
	}
	return s.importCandidates(ctx, a, req, cands)
}

// ImportSheet reads a hosted spreadsheet and commits its valid rows.
func (s *Service) ImportSheet(ctx context.Context, req ImportRequest) (*ImportReport, error) {
	a, err := s.begin(ctx, req.ResidentID, core.SourceSheets, "import")
	if err != nil {
		return nil, err
	}
	cands, err := s.readSheet(ctx, a, req.SpreadsheetID)
	if err != nil {
		return nil, err
	}
	return s.importCandidates(ctx, a, req, cands)
}

// ImportItems commits items previously returned by PreviewImage, possibly
// edited by the user. Indices follow the position in req.Items.
func (s *Service) ImportItems(ctx context.Context, req ImportRequest) (*ImportReport, error) {
	a, err := s.begin(ctx, req.ResidentID, core.SourceImage, "import")
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, s.sourceError(a, source.ErrNoDataRows)
	}
	cands := source.FromExtraction(&source.ExtractResponse{Items: req.Items})
	return s.importCandidates(ctx, a, req, cands)
}

func (s *Service) importCandidates(ctx context.Context, a *attempt, req ImportRequest, cands []core.CandidateRecord) (*ImportReport, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		a.log.Warn("import rejected", "error", err, "active", s.limiter.ActiveCount())
		return nil, err
	}
	defer s.limiter.Release()

	prepared, err := s.prepare(ctx, a, cands, req.Exclude)
	if err != nil {
		return nil, err
	}
	result := s.run(ctx, a, req.UserID, prepared)

	return &ImportReport{
		ImportID:   a.id,
		Source:     a.source,
		Summary:    prepared.Summary(),
		Candidates: nonNil(prepared.Candidates),
		Result:     result,
		Duration:   time.Since(a.started),
		Demo:       s.cfg.DemoMode,
	}, nil
}

func (s *Service) readSpreadsheet(a *attempt, fileName string, data []byte) ([]core.CandidateRecord, error) {
	if s.cfg.MaxFileBytes > 0 && int64(len(data)) > s.cfg.MaxFileBytes {
		return nil, s.sourceError(a, ErrFileTooLarge)
	}
	a.log.Debug("parsing spreadsheet", "file", fileName, "bytes", len(data))

	cands, err := source.ParseSpreadsheet(data)
	if err != nil {
		return nil, s.sourceError(a, err)
	}
	if len(cands) == 0 {
		return nil, s.sourceError(a, source.ErrNoDataRows)
	}
	return cands, nil
}

func (s *Service) readSheet(ctx context.Context, a *attempt, spreadsheetID string) ([]core.CandidateRecord, error) {
	if s.sheets == nil {
		return nil, s.sourceError(a, ErrSheetsNotConfigured)
	}
	cands, err := s.sheets.Read(ctx, spreadsheetID)
	if err != nil {
		return nil, s.sourceError(a, err)
	}
	if len(cands) == 0 {
		return nil, s.sourceError(a, source.ErrNoDataRows)
	}
	return cands, nil
}
