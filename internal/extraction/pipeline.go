package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docextract/internal/cleaner"
	"docextract/internal/logger"
)

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithScorer replaces the DefaultScorer.
func WithScorer(s Scorer) Option {
	return func(p *Pipeline) {
		p.scorer = s
	}
}

// WithMetrics shares a process-wide collector with the pipeline.
func WithMetrics(m *MetricsCollector) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// Pipeline orchestrates analysis, strategy execution, scoring, cleaning and
// metrics for one document at a time. A Pipeline may be used from several
// goroutines; every call works on its own Document.
type Pipeline struct {
	analyzer *Analyzer
	executor *Executor
	scorer   Scorer
	metrics  *MetricsCollector
	log      zerolog.Logger
}

// NewPipeline creates a Pipeline over the given collaborators.
func NewPipeline(deps Collaborators, cfg ExecutorConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		analyzer: NewAnalyzer(deps.TextLayer),
		executor: NewExecutor(deps, cfg),
		scorer:   DefaultScorer{},
		log:      logger.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = NewMetricsCollector()
	}
	return p
}

// Metrics returns the collector the pipeline reports to.
func (p *Pipeline) Metrics() *MetricsCollector {
	return p.metrics
}

// ExtractFile reads and extracts the file at path.
func (p *Pipeline) ExtractFile(ctx context.Context, path string) *Result {
	data, err := os.ReadFile(path)
	if err != nil {
		doc := &Document{Name: filepath.Base(path), Path: path, MIMEType: mimeUnknown}
		run := p.newRun(doc)
		return p.emergency(run, fmt.Sprintf("file could not be read: %v", err))
	}
	return p.Extract(ctx, NewDocument("", path, data))
}

// ExtractBytes extracts in-memory document content. name is used for logs
// and metadata only.
func (p *Pipeline) ExtractBytes(ctx context.Context, name string, data []byte) *Result {
	return p.Extract(ctx, NewDocument(name, "", data))
}

// run holds the state of one extraction call.
type run struct {
	id       string
	doc      *Document
	log      zerolog.Logger
	start    time.Time
	chars    Characteristics
	attempts []Attempt
	failures []string
	analysis time.Duration
	extract  time.Duration
}

func (p *Pipeline) newRun(doc *Document) *run {
	id := uuid.NewString()
	return &run{
		id:    id,
		doc:   doc,
		log:   logger.WithRun(p.log, id, doc.Name),
		start: time.Now(),
		chars: DefaultCharacteristics(),
	}
}

// Extract runs the full pipeline on doc. It always returns a successful
// Result, falling back to an emergency result when no strategy produced
// usable text.
func (p *Pipeline) Extract(ctx context.Context, doc *Document) (result *Result) {
	r := p.newRun(doc)
	defer doc.Cleanup(r.log)
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Str("panic", fmt.Sprint(rec)).
				Msg("Extraction panicked, returning emergency result")
			result = p.emergency(r, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	r.log.Info().
		Int64("size_bytes", doc.Size()).
		Str("mime_type", doc.MIMEType).
		Msg("Starting extraction")

	if doc.Size() == 0 {
		return p.emergency(r, "file is empty")
	}

	phase := time.Now()
	r.chars = p.analyzer.Analyze(ctx, doc)
	r.analysis = time.Since(phase)

	strategies := SelectStrategies(r.chars)
	r.log.Debug().
		Str("document_type", string(r.chars.DocumentType)).
		Interface("strategies", strategies).
		Msg("Strategies selected")

	phase = time.Now()
	best, bestScore := p.tryStrategies(ctx, r, strategies)
	r.extract = time.Since(phase)

	switch {
	case best == nil:
		return p.emergency(r, fmt.Sprintf("all %d extraction strategies failed", len(r.attempts)))
	case bestScore < MinimumAcceptableScore:
		return p.emergency(r, fmt.Sprintf("best extraction (%s) scored %.1f, below the minimum of %.0f",
			best.Strategy, bestScore, MinimumAcceptableScore))
	}

	return p.complete(r, best)
}

// tryStrategies executes strategies in order, keeping the highest-scoring
// outcome. Ties keep the earlier strategy.
func (p *Pipeline) tryStrategies(ctx context.Context, r *run, strategies []Strategy) (*Outcome, float64) {
	var best *Outcome
	bestScore := -1.0

	for _, s := range strategies {
		out, attempt := p.executor.Execute(ctx, r.doc, s)
		if !out.OK() {
			r.attempts = append(r.attempts, attempt)
			r.failures = append(r.failures, fmt.Sprintf("%s: %v", s, out.Err))
			continue
		}

		score := p.scorer.Score(out.Text, out.Confidence)
		attempt.Score = score
		r.attempts = append(r.attempts, attempt)

		r.log.Debug().
			Str("strategy", s.String()).
			Float64("score", score).
			Float64("best_score", bestScore).
			Msg("Strategy scored")

		if score > bestScore {
			o := out
			best, bestScore = &o, score
		}
		if score > ExcellentScore {
			r.log.Info().
				Str("strategy", s.String()).
				Float64("score", score).
				Msg("Excellent result, skipping remaining strategies")
			break
		}
	}
	return best, bestScore
}

func (p *Pipeline) complete(r *run, best *Outcome) *Result {
	phase := time.Now()
	clean, stats := cleaner.Clean(best.Text)
	cleaning := time.Since(phase)

	total := time.Since(r.start)
	rawChars := utf8.RuneCountInString(best.Text)

	pageCount := best.Pages
	if known := r.doc.knownPages(); known > pageCount {
		pageCount = known
	}

	health := p.metrics.Finish(RunSummary{
		TextLength: utf8.RuneCountInString(clean),
		Confidence: best.Confidence,
		Duration:   total,
		Attempts:   r.attempts,
		Method:     best.Strategy.String(),
	})

	result := &Result{
		Success:       true,
		CleanText:     clean,
		RawText:       best.Text,
		Confidence:    best.Confidence,
		CleaningStats: stats,
		Metadata: Metadata{
			RunID:            r.id,
			FileName:         r.doc.Name,
			MIMEType:         r.doc.MIMEType,
			PageCount:        pageCount,
			ProcessingTimeMs: total.Milliseconds(),
			ModelID:          best.ModelID,
			FileSizeBytes:    r.doc.Size(),
			Characteristics:  r.chars,
			ProcessingMetrics: ProcessingMetrics{
				TotalTimeMs:         total.Milliseconds(),
				AnalysisTimeMs:      r.analysis.Milliseconds(),
				ExtractionTimeMs:    r.extract.Milliseconds(),
				CleaningTimeMs:      cleaning.Milliseconds(),
				SuccessfulMethod:    best.Strategy.String(),
				CharactersExtracted: rawChars,
				PagesProcessed:      best.Pages,
				ErrorCount:          len(r.failures),
				RetryCount:          retries(r.attempts),
			},
			Attempts:       r.attempts,
			HealthScore:    health,
			FailureReasons: r.failures,
		},
	}

	r.log.Info().
		Str("method", best.Strategy.String()).
		Str("model", best.ModelID).
		Float64("confidence", best.Confidence).
		Float64("health_score", health).
		Int("raw_chars", rawChars).
		Int("clean_chars", stats.CleanedLength).
		Int("attempts", len(r.attempts)).
		Int64("duration_ms", total.Milliseconds()).
		Msg("Extraction completed")

	return result
}

// emergency builds the labeled placeholder result returned when extraction
// produced nothing usable.
func (p *Pipeline) emergency(r *run, reason string) *Result {
	total := time.Since(r.start)
	text := emergencyText(r.doc, reason)
	length := utf8.RuneCountInString(text)

	health := p.metrics.Finish(RunSummary{
		TextLength: length,
		Confidence: EmergencyConfidence,
		Duration:   total,
		Attempts:   r.attempts,
		Method:     MethodEmergency,
		Emergency:  true,
	})

	r.log.Warn().
		Str("reason", reason).
		Int("attempts", len(r.attempts)).
		Strs("failures", r.failures).
		Msg("Returning emergency result")

	failures := append([]string{reason}, r.failures...)
	return &Result{
		Success:    true,
		CleanText:  text,
		RawText:    text,
		Confidence: EmergencyConfidence,
		CleaningStats: cleaner.Stats{
			OriginalLength: length,
			CleanedLength:  length,
		},
		Metadata: Metadata{
			RunID:            r.id,
			FileName:         r.doc.Name,
			MIMEType:         r.doc.MIMEType,
			PageCount:        r.doc.knownPages(),
			ProcessingTimeMs: total.Milliseconds(),
			ModelID:          MethodEmergency,
			FileSizeBytes:    r.doc.Size(),
			Characteristics:  r.chars,
			ProcessingMetrics: ProcessingMetrics{
				TotalTimeMs:      total.Milliseconds(),
				AnalysisTimeMs:   r.analysis.Milliseconds(),
				ExtractionTimeMs: r.extract.Milliseconds(),
				SuccessfulMethod: MethodEmergency,
				ErrorCount:       len(r.failures),
				RetryCount:       retries(r.attempts),
			},
			Attempts:       r.attempts,
			HealthScore:    health,
			FailureReasons: failures,
			Emergency:      true,
		},
	}
}

// EmergencyMarker starts the text of every emergency result.
const EmergencyMarker = "[DOCUMENT REQUIRES MANUAL REVIEW]"

func emergencyText(doc *Document, reason string) string {
	name := doc.Name
	if name == "" {
		name = "(unnamed document)"
	}
	pages := "unknown"
	if n := doc.knownPages(); n > 0 {
		pages = fmt.Sprint(n)
	}

	var b strings.Builder
	b.WriteString(EmergencyMarker)
	b.WriteString("\n\nAutomatic text extraction could not produce usable text for this document.\n")
	fmt.Fprintf(&b, "File: %s\n", name)
	fmt.Fprintf(&b, "Size: %d bytes\n", doc.Size())
	fmt.Fprintf(&b, "Type: %s\n", doc.MIMEType)
	fmt.Fprintf(&b, "Pages: %s\n", pages)
	fmt.Fprintf(&b, "Reason: %s\n", reason)
	b.WriteString("\nPlease review the original file manually.")
	return b.String()
}

// retries counts attempts made after the first one, plus direct-image
// fallbacks inside an attempt.
func retries(attempts []Attempt) int {
	n := 0
	if len(attempts) > 1 {
		n = len(attempts) - 1
	}
	for _, a := range attempts {
		if a.Fallback {
			n++
		}
	}
	return n
}
