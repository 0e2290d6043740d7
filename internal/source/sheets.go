package source

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

// sheetColumns covers every template column (A through L).
const sheetColumns = "A:L"

// SheetsReader reads import rows straight from a Google Sheets spreadsheet.
type SheetsReader struct {
	service *sheets.Service
}

// NewSheetsReader creates a reader authenticated with a service-account
// credentials file. Extra options (endpoint, HTTP client) are appended.
func NewSheetsReader(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*SheetsReader, error) {
	all := append([]option.ClientOption{option.WithCredentialsFile(credentialsFile)}, opts...)
	service, err := sheets.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsReader{service: service}, nil
}

// NewSheetsReaderWithService wraps an already configured service.
func NewSheetsReaderWithService(service *sheets.Service) *SheetsReader {
	return &SheetsReader{service: service}
}

// Read loads the input sheet of spreadsheetID and returns its candidates.
func (r *SheetsReader) Read(ctx context.Context, spreadsheetID string) ([]core.CandidateRecord, error) {
	values, err := r.Values(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	return ParseSheetValues(values, core.SourceSheets)
}

// Values returns the raw grid of the input sheet. Dates come back as serial
// numbers so they go through the same conversion as .xlsx cells.
func (r *SheetsReader) Values(ctx context.Context, spreadsheetID string) ([][]any, error) {
	meta, err := r.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read spreadsheet %s: %v", ErrUnreadableFile, spreadsheetID, err)
	}

	names := make([]string, 0, len(meta.Sheets))
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			names = append(names, s.Properties.Title)
		}
	}
	sheet, ok := PickSheet(names)
	if !ok {
		return nil, fmt.Errorf("%w: spreadsheet %s has no sheets", ErrUnreadableFile, spreadsheetID)
	}

	resp, err := r.service.Spreadsheets.Values.Get(spreadsheetID, quoteSheet(sheet)+"!"+sheetColumns).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrUnreadableFile, sheet, err)
	}

	return resp.Values, nil
}

// quoteSheet quotes a sheet title for A1 notation.
func quoteSheet(name string) string {
	out := []rune{'\''}
	for _, r := range name {
		if r == '\'' {
			out = append(out, '\'')
		}
		out = append(out, r)
	}
	return string(append(out, '\''))
}
