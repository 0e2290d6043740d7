package source

import (
	"context"
	"time"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

// DemoAnchor is the day the demo item list is dated from when
// DemoExtractor.Now is unset.
var DemoAnchor = time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

// DemoExtractor returns a fixed item list for any valid image. Serving
// dates fall on the three days after Now, which defaults to DemoAnchor, so
// the zero value returns the same response every time.
type DemoExtractor struct {
	Now func() time.Time
}

// Extract validates the image like the live path, then returns canned items.
func (d DemoExtractor) Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	if err := ValidateImage(req.MimeType, int64(len(req.Image)), MaxImageBytes); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := func() time.Time { return DemoAnchor }
	if d.Now != nil {
		now = d.Now
	}
	day := func(offset int) string {
		return now().AddDate(0, 0, offset).Format(core.ISODate)
	}
	qty := func(v float64) *float64 { return &v }

	items := []ExtractedItem{
		{ItemName: "バナナ", Category: "food", Quantity: qty(3), Unit: "本", ServingDate: day(1), ServingTimeSlot: "snack", ServingMethodDetail: "皮むき", Confidence: core.ConfidenceHigh},
		{ItemName: "りんごジュース", Category: "drink", Quantity: qty(2), Unit: "パック", ServingDate: day(1), ServingTimeSlot: "lunch", ServingMethodDetail: "冷やす", Confidence: core.ConfidenceHigh},
		{ItemName: "羊羹", Category: "food", Quantity: qty(1), Unit: "箱", ServingDate: day(2), ServingTimeSlot: "snack", ServingMethodDetail: "一口大に切る", NoteToStaff: "少しずつ出してください", Confidence: core.ConfidenceMedium},
		{ItemName: "ヨーグルト", Category: "food", Quantity: qty(4), Unit: "個", ServingDate: day(3), ServingTimeSlot: "breakfast", Confidence: core.ConfidenceLow},
	}

	return &ExtractResponse{
		Items: items,
		Metadata: ExtractMetadata{
			DateRange:  DateRange{Start: day(1), End: day(3)},
			Confidence: core.ConfidenceMedium,
			Warnings:   []string{"demo mode: items are sample data"},
		},
	}, nil
}
