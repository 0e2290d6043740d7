package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/service"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/source"
)

// sheetsRequest is the body of the hosted spreadsheet endpoints.
type sheetsRequest struct {
	SpreadsheetID string `json:"spreadsheetId"`
	UserID        string `json:"userId"`
	Exclude       []int  `json:"exclude"`
}

// itemsRequest is the body of the reviewed items import.
type itemsRequest struct {
	UserID  string                 `json:"userId"`
	Items   []source.ExtractedItem `json:"items"`
	Exclude []int                  `json:"exclude"`
}

// duplicateRequest is the body of the edit-time duplicate check.
type duplicateRequest struct {
	ItemName        string `json:"itemName"`
	ServingDate     string `json:"servingDate"`
	ServingTimeSlot string `json:"servingTimeSlot"`
	ExcludeID       string `json:"excludeId"`
}

// upload is a file read from a multipart form.
type upload struct {
	name        string
	contentType string
	data        []byte
}

// readUpload parses the multipart form and reads field in full. The form
// values are available on r afterwards.
func readUpload(w http.ResponseWriter, r *http.Request, field string, maxSize int64) (*upload, error) {
	// Allow some headroom for the multipart envelope and other fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+64<<10)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			return nil, fmt.Errorf("%w: %v", service.ErrFileTooLarge, err)
		}
		return nil, fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, errNoFile
	}
	defer file.Close()

	data, err := readAll(file, header)
	if err != nil {
		return nil, err
	}
	return &upload{
		name:        header.Filename,
		contentType: header.Header.Get("Content-Type"),
		data:        data,
	}, nil
}

func readAll(file multipart.File, header *multipart.FileHeader) ([]byte, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", header.Filename, err)
	}
	return data, nil
}

// parseExclude accepts a JSON array ("[2,5]") or a comma list ("2,5").
func parseExclude(v string) ([]int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if strings.HasPrefix(v, "[") {
		var out []int
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, core.ValidationError{Field: "exclude", Message: "must be a list of row numbers"}
		}
		return out, nil
	}
	var out []int
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, core.ValidationError{Field: "exclude", Message: "must be a list of row numbers"}
		}
		out = append(out, n)
	}
	return out, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return core.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// imageType returns the declared image type, sniffing the bytes when the
// client sent none or a generic one.
func imageType(u *upload) string {
	ct := strings.TrimSpace(u.contentType)
	if ct == "" || strings.HasPrefix(ct, "application/octet-stream") {
		return http.DetectContentType(u.data)
	}
	return ct
}

func (s *Server) handlePreviewSpreadsheet(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, "file", s.cfg.Import.MaxFileSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	exclude, err := parseExclude(r.FormValue("exclude"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	preview, err := s.service.PreviewSpreadsheet(ctx, service.PreviewRequest{
		ResidentID: chi.URLParam(r, "residentID"),
		FileName:   up.name,
		Data:       up.data,
		Exclude:    exclude,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleImportSpreadsheet(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, "file", s.cfg.Import.MaxFileSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	exclude, err := parseExclude(r.FormValue("exclude"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	report, err := s.service.ImportSpreadsheet(ctx, service.ImportRequest{
		ResidentID: chi.URLParam(r, "residentID"),
		UserID:     r.FormValue("userId"),
		FileName:   up.name,
		Data:       up.data,
		Exclude:    exclude,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePreviewSheet(w http.ResponseWriter, r *http.Request) {
	var req sheetsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	preview, err := s.service.PreviewSheet(ctx, chi.URLParam(r, "residentID"), req.SpreadsheetID, req.Exclude)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleImportSheet(w http.ResponseWriter, r *http.Request) {
	var req sheetsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	report, err := s.service.ImportSheet(ctx, service.ImportRequest{
		ResidentID:    chi.URLParam(r, "residentID"),
		UserID:        req.UserID,
		SpreadsheetID: req.SpreadsheetID,
		Exclude:       req.Exclude,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePreviewImage(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, "image", s.cfg.Extraction.MaxImageSize)
	if err != nil {
		if errors.Is(err, service.ErrFileTooLarge) {
			err = fmt.Errorf("%w: %v", source.ErrImageTooLarge, err)
		}
		s.fail(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	preview, err := s.service.PreviewImage(ctx, chi.URLParam(r, "residentID"), imageType(up), up.data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleImportItems(w http.ResponseWriter, r *http.Request) {
	var req itemsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	report, err := s.service.ImportItems(ctx, service.ImportRequest{
		ResidentID: chi.URLParam(r, "residentID"),
		UserID:     req.UserID,
		Items:      req.Items,
		Exclude:    req.Exclude,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDuplicateCheck(w http.ResponseWriter, r *http.Request) {
	var req duplicateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	raw := map[string]string{
		core.FieldItemName:        req.ItemName,
		core.FieldServingDate:     req.ServingDate,
		core.FieldServingTimeSlot: req.ServingTimeSlot,
	}
	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.CheckDuplicate(ctx, chi.URLParam(r, "residentID"), raw, req.ExcludeID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
