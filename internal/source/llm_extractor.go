package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

// Generator is the part of a langchaingo model the extractor needs.
// *openai.LLM satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// LLMExtractor reads item lists from images with a vision-capable model.
type LLMExtractor struct {
	model     Generator
	maxTokens int
	now       func() time.Time
}

// LLMConfig configures NewOpenAIExtractor.
type LLMConfig struct {
	APIKey    string
	BaseURL   string // optional; any OpenAI-compatible endpoint
	Model     string
	MaxTokens int
}

// NewOpenAIExtractor creates an extractor backed by an OpenAI-compatible API.
func NewOpenAIExtractor(cfg LLMConfig) (*LLMExtractor, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction client: %w", err)
	}
	return NewLLMExtractor(client, cfg.MaxTokens), nil
}

// NewLLMExtractor wraps any Generator.
func NewLLMExtractor(model Generator, maxTokens int) *LLMExtractor {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &LLMExtractor{model: model, maxTokens: maxTokens, now: time.Now}
}

// Extract sends the image with instructions and parses the JSON answer.
func (e *LLMExtractor) Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	if err := ValidateImage(req.MimeType, int64(len(req.Image)), MaxImageBytes); err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, extractionInstructions(e.now())),
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(req.MimeType, req.Image),
				llms.TextPart("この画像の品物リストを抽出してください。"),
			},
		},
	}

	resp, err := e.model.GenerateContent(ctx, messages,
		llms.WithMaxTokens(e.maxTokens),
		llms.WithTemperature(0),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrExtractionFailed)
	}

	return ParseExtractionJSON(resp.Choices[0].Content)
}

func extractionInstructions(now time.Time) string {
	var b strings.Builder
	b.WriteString("You read photos of handwritten or printed lists of snacks and drinks that a family brings to a care facility resident.\n")
	b.WriteString("Answer with a single JSON object and nothing else:\n")
	b.WriteString(`{"items":[{"itemName":string,"category":"food"|"drink","quantity":number|null,"unit":string,`)
	b.WriteString(`"servingDate":"YYYY-MM-DD","servingTimeSlot":"breakfast"|"lunch"|"dinner"|"snack"|"anytime",`)
	b.WriteString(`"servingMethodDetail":string,"noteToStaff":string,"confidence":"high"|"medium"|"low"}],`)
	b.WriteString(`"metadata":{"dateRange":{"start":"YYYY-MM-DD","end":"YYYY-MM-DD"},"confidence":"high"|"medium"|"low","warnings":[string]}}`)
	b.WriteString("\nRules:\n")
	b.WriteString("- One entry per item per serving date.\n")
	fmt.Fprintf(&b, "- Today is %s. Dates without a year are in the next occurrence from today.\n", now.Format(core.ISODate))
	b.WriteString("- Copy item names as written, in Japanese when written in Japanese.\n")
	fmt.Fprintf(&b, "- unit is one of: %s. Leave it empty when unclear.\n", strings.Join(core.Codes(core.FieldUnit), ", "))
	fmt.Fprintf(&b, "- servingMethodDetail uses one of: %s when the list says how to serve; otherwise copy the instruction as written.\n", strings.Join(servingMethodLabels(), ", "))
	b.WriteString("- Put anything you could not read clearly into metadata.warnings and lower the confidence.\n")
	return b.String()
}

func servingMethodLabels() []string {
	var out []string
	for _, e := range core.Labels {
		if e.Field == core.FieldServingMethod && len(e.Labels) > 0 {
			out = append(out, e.Labels[0])
		}
	}
	return out
}

// ParseExtractionJSON extracts the answer object from model output.
// Code fences and prose around the object are tolerated.
func ParseExtractionJSON(text string) (*ExtractResponse, error) {
	js := jsonObject(text)
	if js == "" || !gjson.Valid(js) {
		return nil, fmt.Errorf("%w: response is not JSON", ErrExtractionFailed)
	}

	root := gjson.Parse(js)
	items := root.Get("items")
	if !items.IsArray() {
		return nil, fmt.Errorf("%w: response has no items array", ErrExtractionFailed)
	}

	out := &ExtractResponse{Items: []ExtractedItem{}}
	for _, it := range items.Array() {
		item := ExtractedItem{
			ItemName:            it.Get("itemName").String(),
			Category:            it.Get("category").String(),
			Unit:                it.Get("unit").String(),
			ServingDate:         it.Get("servingDate").String(),
			ServingTimeSlot:     it.Get("servingTimeSlot").String(),
			ServingMethodDetail: it.Get("servingMethodDetail").String(),
			NoteToStaff:         it.Get("noteToStaff").String(),
			Confidence:          confidence(it.Get("confidence").String()),
		}
		if q := it.Get("quantity"); q.Type == gjson.Number {
			v := q.Float()
			item.Quantity = &v
		} else if q.Type == gjson.String {
			if v, ok := core.ParseQuantity(q.String()); ok {
				item.Quantity = &v
			}
		}
		out.Items = append(out.Items, item)
	}

	meta := root.Get("metadata")
	out.Metadata = ExtractMetadata{
		DateRange: DateRange{
			Start: meta.Get("dateRange.start").String(),
			End:   meta.Get("dateRange.end").String(),
		},
		Confidence: confidence(meta.Get("confidence").String()),
		Warnings:   []string{},
	}
	for _, w := range meta.Get("warnings").Array() {
		if s := strings.TrimSpace(w.String()); s != "" {
			out.Metadata.Warnings = append(out.Metadata.Warnings, s)
		}
	}

	return out, nil
}

// jsonObject returns the outermost {...} span of s.
func jsonObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// confidence maps a model-reported tag; unknown tags count as low.
func confidence(s string) core.Confidence {
	switch c := core.Confidence(strings.ToLower(strings.TrimSpace(s))); c {
	case "", core.ConfidenceHigh, core.ConfidenceMedium, core.ConfidenceLow:
		return c
	default:
		return core.ConfidenceLow
	}
}
