package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"docextract/internal/logger"
)

// Fixed confidences per strategy.
const (
	DirectTextConfidence    = 0.95
	DedicatedOCRConfidence  = 0.9
	RenderedAConfidence     = 0.8
	RenderedBConfidence     = 0.75
	ImageFallbackConfidence = 0.7
)

// ExecutorConfig bounds strategy execution.
type ExecutorConfig struct {
	// MaxPages caps how many pages rendered strategies process.
	MaxPages int

	// RenderA and RenderB configure the two rendered-image strategies.
	RenderA RenderConfig
	RenderB RenderConfig

	// Timeout bounds one strategy attempt; zero disables it.
	Timeout time.Duration
}

// DefaultExecutorConfig returns 3 pages, 200/300 DPI and a 90s timeout.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxPages: 3,
		RenderA:  DefaultRenderConfigA(200),
		RenderB:  DefaultRenderConfigB(300),
		Timeout:  90 * time.Second,
	}
}

// Executor runs single strategies against a document.
type Executor struct {
	deps Collaborators
	cfg  ExecutorConfig
	log  zerolog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(deps Collaborators, cfg ExecutorConfig) *Executor {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	return &Executor{
		deps: deps,
		cfg:  cfg,
		log:  logger.WithComponent("executor"),
	}
}

// Execute runs strategy s once and records the attempt. It never panics
// for a valid strategy; collaborator panics become failed outcomes. An
// undeclared strategy value is a programming error and panics.
func (e *Executor) Execute(ctx context.Context, doc *Document, s Strategy) (out Outcome, attempt Attempt) {
	if !s.Valid() {
		panic(fmt.Sprintf("extraction: unknown strategy %d", int(s)))
	}

	attempt = Attempt{Method: s, StartTime: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{
				Strategy: s,
				Err:      NewStrategyError(s, "Execute", fmt.Errorf("%w: panic: %v", panicClass(s), r), ""),
			}
		}
		e.finish(doc, out, &attempt)
	}()

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	switch s {
	case StrategyDirectText:
		out = e.directText(ctx, doc)
	case StrategyDedicatedOCR:
		out = e.dedicatedOCR(ctx, doc)
	case StrategyRenderedA:
		out = e.rendered(ctx, doc, s, e.cfg.RenderA, RenderedAConfidence)
	case StrategyRenderedB:
		out = e.rendered(ctx, doc, s, e.cfg.RenderB, RenderedBConfidence)
	}
	out.Strategy = s
	return out, attempt
}

func (e *Executor) finish(doc *Document, out Outcome, attempt *Attempt) {
	attempt.EndTime = time.Now()
	attempt.DurationMs = attempt.EndTime.Sub(attempt.StartTime).Milliseconds()
	attempt.Success = out.OK()
	attempt.Pages = out.Pages
	attempt.Fallback = out.Fallback

	if out.Err != nil {
		attempt.ErrorMessage = out.Err.Error()
		e.log.Warn().
			Err(out.Err).
			Str("file", doc.Name).
			Str("strategy", attempt.Method.String()).
			Str("class", ClassName(out.Err)).
			Int64("duration_ms", attempt.DurationMs).
			Msg("Strategy failed")
		return
	}

	attempt.CharactersExtracted = utf8.RuneCountInString(out.Text)
	e.log.Info().
		Str("file", doc.Name).
		Str("strategy", attempt.Method.String()).
		Str("model", out.ModelID).
		Int("characters", attempt.CharactersExtracted).
		Int("pages", out.Pages).
		Bool("fallback", out.Fallback).
		Int64("duration_ms", attempt.DurationMs).
		Msg("Strategy succeeded")
}

func panicClass(s Strategy) error {
	if s == StrategyDirectText {
		return ErrLocalParse
	}
	return ErrExternalService
}

func (e *Executor) directText(ctx context.Context, doc *Document) Outcome {
	const op = "DecodeTextLayer"
	s := StrategyDirectText

	if e.deps.TextLayer == nil {
		return failed(s, op, ErrNotConfigured, ErrNotConfigured, "no text layer extractor")
	}
	text, pages, err := doc.TextLayer(ctx, e.deps.TextLayer)
	if err != nil {
		return failed(s, op, ErrLocalParse, err, "")
	}
	if strings.TrimSpace(text) == "" {
		return failed(s, op, ErrEmptyResult, ErrEmptyResult, "text layer is empty")
	}

	return Outcome{
		Text:       text,
		Confidence: DirectTextConfidence,
		Pages:      pages,
		ModelID:    e.deps.TextLayer.Name(),
	}
}

func (e *Executor) dedicatedOCR(ctx context.Context, doc *Document) Outcome {
	const op = "ProcessDocument"
	s := StrategyDedicatedOCR

	if e.deps.DocumentOCR == nil {
		return failed(s, op, ErrNotConfigured, ErrNotConfigured, "no OCR document service")
	}
	if !doc.IsPDF() && !doc.IsImage() {
		return failed(s, op, ErrUnsupportedFormat, ErrUnsupportedFormat, doc.MIMEType)
	}

	pages, err := e.deps.DocumentOCR.ProcessDocument(ctx, doc.Data, doc.MIMEType)
	if err != nil {
		return failed(s, op, ErrExternalService, err, e.deps.DocumentOCR.Name())
	}

	text := joinPages(pages)
	if text == "" {
		return failed(s, op, ErrEmptyResult, ErrEmptyResult, fmt.Sprintf("%d pages without text", len(pages)))
	}

	return Outcome{
		Text:       text,
		Confidence: DedicatedOCRConfidence,
		Pages:      len(pages),
		ModelID:    e.deps.DocumentOCR.Name(),
	}
}

// rendered rasterizes up to MaxPages pages and transcribes each with the
// vision service. A failure on page 1 aborts the strategy (after trying the
// direct-image fallback when the document has no text layer); a failure on a
// later page keeps the pages transcribed so far.
func (e *Executor) rendered(ctx context.Context, doc *Document, s Strategy, cfg RenderConfig, confidence float64) Outcome {
	if doc.IsImage() {
		return e.renderedImage(ctx, doc, s, cfg, confidence)
	}
	if !doc.IsPDF() {
		return failed(s, "RenderPage", ErrUnsupportedFormat, ErrUnsupportedFormat, doc.MIMEType)
	}

	limit := e.cfg.MaxPages
	if known := doc.knownPages(); known > 0 && known < limit {
		limit = known
	}

	var texts []string
	for page := 1; page <= limit; page++ {
		text, err := e.renderPage(ctx, doc, s, page, cfg)
		if err != nil {
			if page == 1 {
				return e.fallback(ctx, doc, s, err)
			}
			e.log.Warn().
				Err(err).
				Str("file", doc.Name).
				Str("strategy", s.String()).
				Int("page", page).
				Int("pages_kept", len(texts)).
				Msg("Page failed, truncating rendered pages")
			break
		}
		texts = append(texts, text)
	}

	joined := joinPages(texts)
	if joined == "" {
		return failed(s, "ExtractText", ErrEmptyResult, ErrEmptyResult, fmt.Sprintf("%d rendered pages without text", len(texts)))
	}

	return Outcome{
		Text:       joined,
		Confidence: confidence,
		Pages:      len(texts),
		ModelID:    e.deps.Vision.Name(),
	}
}

func (e *Executor) renderPage(ctx context.Context, doc *Document, s Strategy, page int, cfg RenderConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", WrapStrategyError(s, "RenderPage", ErrExternalService, err, fmt.Sprintf("page %d", page))
	}
	if e.deps.Rasterizer == nil {
		return "", NewStrategyError(s, "RenderPage", ErrNotConfigured, "no rasterizer")
	}
	if e.deps.Vision == nil {
		return "", NewStrategyError(s, "ExtractText", ErrNotConfigured, "no vision service")
	}

	path, err := doc.FilePath()
	if err != nil {
		return "", WrapStrategyError(s, "RenderPage", ErrRasterization, err, "")
	}

	img, err := e.deps.Rasterizer.Render(ctx, path, page, cfg)
	if err != nil {
		return "", WrapStrategyError(s, "RenderPage", ErrRasterization, err, fmt.Sprintf("page %d at %d dpi", page, cfg.DPI))
	}

	text, err := e.deps.Vision.ExtractText(ctx, img, cfg.Instruction)
	if err != nil {
		return "", WrapStrategyError(s, "ExtractText", ErrExternalService, err, fmt.Sprintf("page %d", page))
	}
	return text, nil
}

// renderedImage sends an image document to the vision service as-is.
func (e *Executor) renderedImage(ctx context.Context, doc *Document, s Strategy, cfg RenderConfig, confidence float64) Outcome {
	if e.deps.Vision == nil {
		return e.fallback(ctx, doc, s, NewStrategyError(s, "ExtractText", ErrNotConfigured, "no vision service"))
	}

	text, err := e.deps.Vision.ExtractText(ctx, Image{Data: doc.Data, MIMEType: doc.MIMEType}, cfg.Instruction)
	if err != nil {
		return e.fallback(ctx, doc, s, WrapStrategyError(s, "ExtractText", ErrExternalService, err, "image document"))
	}
	if strings.TrimSpace(text) == "" {
		return failed(s, "ExtractText", ErrEmptyResult, ErrEmptyResult, "image document")
	}

	return Outcome{
		Text:       strings.TrimSpace(text),
		Confidence: confidence,
		Pages:      1,
		ModelID:    e.deps.Vision.Name(),
	}
}

// fallback runs direct image OCR on the original bytes when the rendered
// path failed and the document has no text layer to fall back on. It is
// tried once.
func (e *Executor) fallback(ctx context.Context, doc *Document, s Strategy, cause error) Outcome {
	if e.deps.ImageOCR == nil || doc.hasTextLayer() || ctx.Err() != nil {
		return Outcome{Err: cause}
	}

	e.log.Info().
		Err(cause).
		Str("file", doc.Name).
		Str("strategy", s.String()).
		Str("service", e.deps.ImageOCR.Name()).
		Msg("Trying direct image OCR fallback")

	result, err := e.deps.ImageOCR.DetectText(ctx, doc.Data, doc.MIMEType)
	if err != nil {
		return failed(s, "DetectText", ErrExternalService, err, fmt.Sprintf("direct image fallback after: %v", cause))
	}
	text := strings.TrimSpace(result.Text)
	if text == "" {
		return failed(s, "DetectText", ErrEmptyResult, ErrEmptyResult, "direct image fallback found no text")
	}

	confidence := result.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = ImageFallbackConfidence
	}
	pages := result.Pages
	if pages == 0 {
		pages = 1
	}

	return Outcome{
		Text:       text,
		Confidence: confidence,
		Pages:      pages,
		ModelID:    e.deps.ImageOCR.Name(),
		Fallback:   true,
	}
}

func failed(s Strategy, op string, class, err error, details string) Outcome {
	if errors.Is(err, context.DeadlineExceeded) && details == "" {
		details = "strategy timed out"
	}
	return Outcome{Strategy: s, Err: WrapStrategyError(s, op, class, err, details)}
}

func joinPages(pages []string) string {
	var parts []string
	for _, p := range pages {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}
