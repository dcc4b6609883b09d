// Package extraction turns opaque document files into clean, embedding-ready text.
//
// A Pipeline classifies the document from its local text layer, picks an
// ordered list of strategies for that kind of document, and tries them one
// after another:
//   - direct text: decode the PDF text layer locally
//   - dedicated OCR: send the whole document to an OCR document service
//   - rendered image A/B: rasterize the first pages and ask a vision model
//     to transcribe them, tuned for printed (A) or mixed/handwritten (B) pages
//
// Each output is scored; a score above ExcellentScore stops the loop. The
// best output is cleaned with the cleaner package and returned together with
// attempt records and a health score.
//
// The pipeline never returns an error. When every strategy fails, or the best
// output is unusable, the caller receives a clearly labeled emergency result
// with low confidence instead.
package extraction

import (
	"encoding/json"
	"fmt"
	"time"

	"docextract/internal/cleaner"
)

// Strategy identifies one extraction technique.
type Strategy int

const (
	StrategyDirectText Strategy = iota + 1
	StrategyDedicatedOCR
	StrategyRenderedA
	StrategyRenderedB
)

// MethodEmergency is reported as the successful method of an emergency result.
const MethodEmergency = "emergency"

var strategyNames = map[Strategy]string{
	StrategyDirectText:   "direct_text",
	StrategyDedicatedOCR: "dedicated_ocr",
	StrategyRenderedA:    "rendered_image_a",
	StrategyRenderedB:    "rendered_image_b",
}

// AllStrategies lists every strategy in declaration order.
func AllStrategies() []Strategy {
	return []Strategy{StrategyDirectText, StrategyDedicatedOCR, StrategyRenderedA, StrategyRenderedB}
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Valid reports whether s is one of the declared strategies.
func (s Strategy) Valid() bool {
	_, ok := strategyNames[s]
	return ok
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Quality is the estimated quality of a document's text layer.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// DocumentType is the visual/textual nature of a document.
type DocumentType string

const (
	TypePrinted     DocumentType = "printed"
	TypeScanned     DocumentType = "scanned"
	TypeMixed       DocumentType = "mixed"
	TypeHandwritten DocumentType = "handwritten"
)

// Characteristics classifies a document for strategy selection.
type Characteristics struct {
	HasText          bool         `json:"has_text"`
	HasMixedContent  bool         `json:"has_mixed_content"`
	HasHandwriting   bool         `json:"has_handwriting"`
	HasFormFields    bool         `json:"has_form_fields"`
	HasSeals         bool         `json:"has_seals"`
	EstimatedQuality Quality      `json:"estimated_quality"`
	DocumentType     DocumentType `json:"document_type"`
}

// DefaultCharacteristics is the conservative classification used when
// analysis is impossible.
func DefaultCharacteristics() Characteristics {
	return Characteristics{
		EstimatedQuality: QualityMedium,
		DocumentType:     TypeScanned,
	}
}

// Attempt records one strategy execution.
type Attempt struct {
	Method              Strategy  `json:"method"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	DurationMs          int64     `json:"duration_ms"`
	Success             bool      `json:"success"`
	CharactersExtracted int       `json:"characters_extracted"`
	Pages               int       `json:"pages,omitempty"`
	Score               float64   `json:"score"`
	Fallback            bool      `json:"fallback,omitempty"`
	ErrorMessage        string    `json:"error_message,omitempty"`
}

// ProcessingMetrics summarizes one pipeline run.
type ProcessingMetrics struct {
	TotalTimeMs         int64  `json:"total_time_ms"`
	AnalysisTimeMs      int64  `json:"analysis_time_ms"`
	ExtractionTimeMs    int64  `json:"extraction_time_ms"`
	CleaningTimeMs      int64  `json:"cleaning_time_ms"`
	SuccessfulMethod    string `json:"successful_method"`
	CharactersExtracted int    `json:"characters_extracted"`
	PagesProcessed      int    `json:"pages_processed"`
	ErrorCount          int    `json:"error_count"`
	RetryCount          int    `json:"retry_count"`
}

// Metadata describes how a Result was produced.
type Metadata struct {
	RunID             string            `json:"run_id"`
	FileName          string            `json:"file_name,omitempty"`
	MIMEType          string            `json:"mime_type,omitempty"`
	PageCount         int               `json:"page_count"`
	ProcessingTimeMs  int64             `json:"processing_time_ms"`
	ModelID           string            `json:"model_id"`
	FileSizeBytes     int64             `json:"file_size_bytes"`
	Characteristics   Characteristics   `json:"characteristics"`
	ProcessingMetrics ProcessingMetrics `json:"processing_metrics"`
	Attempts          []Attempt         `json:"attempts"`
	HealthScore       float64           `json:"health_score"`
	FailureReasons    []string          `json:"failure_reasons,omitempty"`
	Emergency         bool              `json:"emergency"`
}

// Result is what every extraction call returns. Success is always true;
// quality is carried by Confidence and Metadata.HealthScore.
type Result struct {
	Success       bool          `json:"success"`
	CleanText     string        `json:"clean_text"`
	RawText       string        `json:"raw_text"`
	Confidence    float64       `json:"confidence"`
	CleaningStats cleaner.Stats `json:"cleaning_stats"`
	Metadata      Metadata      `json:"metadata"`
}

// JSON renders the result as indented JSON.
func (r *Result) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Outcome is the result of a single strategy. Err is nil on success; on
// failure it is a *StrategyError and the remaining fields are zero.
type Outcome struct {
	Strategy   Strategy
	Text       string
	Confidence float64
	Pages      int
	ModelID    string
	Fallback   bool
	Err        error
}

// OK reports whether the strategy produced text.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// RenderConfig tunes page rasterization and the vision instruction for one
// rendered-image strategy.
type RenderConfig struct {
	Name        string
	DPI         int
	Format      string // png or jpeg
	Grayscale   bool
	JPEGQuality int
	Instruction string
}

// Image is a rasterized page or an image document.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageText is the output of direct image OCR.
type ImageText struct {
	Text       string
	Confidence float64
	Pages      int
}
