package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

// MaxImageBytes is the upload ceiling for item list photos.
const MaxImageBytes = 5 << 20

// AllowedImageTypes lists the MIME types accepted for extraction.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// ExtractRequest is the input to an image extraction call.
type ExtractRequest struct {
	Image    []byte
	MimeType string
}

// ExtractedItem is one item read from an image.
type ExtractedItem struct {
	ItemName            string          `json:"itemName"`
	Category            string          `json:"category,omitempty"`
	Quantity            *float64        `json:"quantity,omitempty"`
	Unit                string          `json:"unit,omitempty"`
	ServingDate         string          `json:"servingDate"`
	ServingTimeSlot     string          `json:"servingTimeSlot"`
	ServingMethodDetail string          `json:"servingMethodDetail,omitempty"`
	NoteToStaff         string          `json:"noteToStaff,omitempty"`
	Confidence          core.Confidence `json:"confidence,omitempty"`
}

// DateRange is the span of serving dates found in an image.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ExtractMetadata describes an extraction as a whole.
type ExtractMetadata struct {
	DateRange  DateRange       `json:"dateRange"`
	Confidence core.Confidence `json:"confidence"`
	Warnings   []string        `json:"warnings"`
}

// ExtractResponse is the result of an image extraction call.
type ExtractResponse struct {
	Items    []ExtractedItem `json:"items"`
	Metadata ExtractMetadata `json:"metadata"`
}

// Extractor reads item lists out of images. Implementations must return
// the same shape whether backed by a live model or canned data.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)
}

// ValidateImage enforces the MIME allow-list and size ceiling. A max of 0
// means MaxImageBytes.
func ValidateImage(mimeType string, size int64, max int64) error {
	if max <= 0 {
		max = MaxImageBytes
	}

	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	allowed := false
	for _, a := range AllowedImageTypes {
		if mt == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w %q", ErrUnsupportedImageType, mimeType)
	}

	if size <= 0 {
		return fmt.Errorf("%w: empty image", ErrUnsupportedImageType)
	}
	if size > max {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrImageTooLarge, size, max)
	}
	return nil
}

// FromExtraction turns an extraction response into candidates. Index is
// the item's 0-based position in resp.Items.
//
// ServingMethodDetail becomes a serving method only when it exactly matches
// a known label or code; anything else falls back to as_is silently.
func FromExtraction(resp *ExtractResponse) []core.CandidateRecord {
	if resp == nil {
		return nil
	}

	out := make([]core.CandidateRecord, 0, len(resp.Items))
	for i, it := range resp.Items {
		raw := map[string]string{
			core.FieldItemName:        strings.TrimSpace(it.ItemName),
			core.FieldCategory:        strings.TrimSpace(it.Category),
			core.FieldUnit:            strings.TrimSpace(it.Unit),
			core.FieldServingMethod:   servingMethodFromDetail(it.ServingMethodDetail),
			core.FieldServingDate:     strings.TrimSpace(it.ServingDate),
			core.FieldServingTimeSlot: strings.TrimSpace(it.ServingTimeSlot),
			core.FieldNoteToStaff:     strings.TrimSpace(it.NoteToStaff),
		}
		if it.Quantity != nil {
			raw[core.FieldQuantity] = core.FormatQuantity(*it.Quantity)
		}

		conf := it.Confidence
		if conf == "" {
			conf = resp.Metadata.Confidence
		}

		out = append(out, core.CandidateRecord{
			Index:      i,
			Source:     core.SourceImage,
			Raw:        raw,
			Confidence: conf,
		})
	}
	return out
}

func servingMethodFromDetail(detail string) string {
	d := strings.TrimSpace(detail)
	if d == "" {
		return core.DefaultServingMethod
	}
	for _, e := range core.Labels {
		if e.Field != core.FieldServingMethod {
			continue
		}
		if d == e.Code {
			return e.Code
		}
		for _, l := range e.Labels {
			if d == l {
				return e.Code
			}
		}
	}
	return core.DefaultServingMethod
}
