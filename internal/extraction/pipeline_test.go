package extraction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertEmergency(t *testing.T, result *Result) {
	t.Helper()
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.True(t, result.Metadata.Emergency)
	assert.Equal(t, EmergencyConfidence, result.Confidence)
	assert.Equal(t, EmergencyHealthScore, result.Metadata.HealthScore)
	assert.True(t, strings.HasPrefix(result.CleanText, EmergencyMarker))
	assert.Equal(t, result.CleanText, result.RawText)
	assert.Equal(t, MethodEmergency, result.Metadata.ProcessingMetrics.SuccessfulMethod)
	assert.NotEmpty(t, result.Metadata.FailureReasons)
	assert.NotEmpty(t, result.Metadata.RunID)
}

func TestExtractEmptyFileReturnsEmergency(t *testing.T) {
	ocr := &fakeDocumentOCR{pages: []string{"never"}}
	p := NewPipeline(Collaborators{DocumentOCR: ocr}, testExecutorConfig())

	result := p.ExtractBytes(context.Background(), "empty.pdf", nil)

	assertEmergency(t, result)
	assert.Contains(t, result.CleanText, "empty.pdf")
	assert.Contains(t, result.CleanText, "file is empty")
	assert.Zero(t, ocr.calls.Load())
	assert.Empty(t, result.Metadata.Attempts)
}

func TestExtractCorruptInputReturnsEmergency(t *testing.T) {
	p := NewPipeline(Collaborators{TextLayer: &fakeTextLayer{err: errors.New("not a pdf")}}, testExecutorConfig())

	result := p.ExtractBytes(context.Background(), "garbage.bin", []byte{0x00, 0x01, 0x02})

	assertEmergency(t, result)
	assert.Len(t, result.Metadata.Attempts, 4)
	assert.Contains(t, result.Metadata.FailureReasons[0], "all 4 extraction strategies failed")
}

func TestExtractUnreadableFileReturnsEmergency(t *testing.T) {
	p := NewPipeline(Collaborators{}, testExecutorConfig())

	result := p.ExtractFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))

	assertEmergency(t, result)
	assert.Equal(t, "missing.pdf", result.Metadata.FileName)
	assert.Contains(t, result.CleanText, "file could not be read")
}

func TestExtractStopsAfterExcellentScore(t *testing.T) {
	// No text layer: dedicated OCR, direct text, rendered A, rendered B.
	ocr := &fakeDocumentOCR{pages: []string{"resultado mediocre"}}
	vision := &fakeVision{text: "resultado excelente"}
	scorer := scoreByText{"resultado mediocre": 45, "resultado excelente": 82}
	cfg := testExecutorConfig()
	cfg.MaxPages = 1

	p := NewPipeline(Collaborators{
		TextLayer:   &fakeTextLayer{},
		DocumentOCR: ocr,
		Rasterizer:  &fakeRasterizer{},
		Vision:      vision,
	}, cfg, WithScorer(scorer))

	result := p.ExtractBytes(context.Background(), "scan.pdf", pdfBytes)

	require.False(t, result.Metadata.Emergency)
	assert.Equal(t, "resultado excelente", result.RawText)
	assert.Equal(t, RenderedAConfidence, result.Confidence)
	assert.Equal(t, StrategyRenderedA.String(), result.Metadata.ProcessingMetrics.SuccessfulMethod)
	assert.Equal(t, int32(1), vision.calls.Load(), "rendered B must not run")

	attempts := result.Metadata.Attempts
	require.Len(t, attempts, 3)
	assert.Equal(t, StrategyDedicatedOCR, attempts[0].Method)
	assert.Equal(t, 45.0, attempts[0].Score)
	assert.Equal(t, StrategyDirectText, attempts[1].Method)
	assert.False(t, attempts[1].Success)
	assert.Equal(t, StrategyRenderedA, attempts[2].Method)
	assert.Equal(t, 82.0, attempts[2].Score)
	assert.Equal(t, 1, result.Metadata.ProcessingMetrics.ErrorCount)
}

func TestExtractKeepsBestScore(t *testing.T) {
	ocr := &fakeDocumentOCR{pages: []string{"mejor"}}
	scorer := scoreByText{"mejor": 60, "peor": 30}
	cfg := testExecutorConfig()
	cfg.MaxPages = 1

	p := NewPipeline(Collaborators{
		TextLayer:   &fakeTextLayer{},
		DocumentOCR: ocr,
		Rasterizer:  &fakeRasterizer{},
		Vision:      &fakeVision{text: "peor"},
	}, cfg, WithScorer(scorer))

	result := p.ExtractBytes(context.Background(), "scan.pdf", pdfBytes)

	assert.Equal(t, "mejor", result.RawText)
	assert.Len(t, result.Metadata.Attempts, 4)
	assert.Equal(t, "fake-ocr", result.Metadata.ModelID)
}

func TestExtractLowScoreReturnsEmergency(t *testing.T) {
	ocr := &fakeDocumentOCR{pages: []string{"~"}}
	p := NewPipeline(Collaborators{DocumentOCR: ocr}, testExecutorConfig(), WithScorer(scoreByText{"~": 5}))

	result := p.ExtractBytes(context.Background(), "scan.pdf", pdfBytes)

	assertEmergency(t, result)
	assert.Contains(t, result.Metadata.FailureReasons[0], "scored 5.0")
}

func TestExtractRecoversFromPanics(t *testing.T) {
	ocr := &fakeDocumentOCR{pages: []string{"texto"}}
	p := NewPipeline(Collaborators{DocumentOCR: ocr}, testExecutorConfig(), WithScorer(panickingScorer{}))

	result := p.ExtractBytes(context.Background(), "scan.pdf", pdfBytes)

	assertEmergency(t, result)
	assert.Contains(t, result.Metadata.FailureReasons[0], "scorer bug")
}

func TestExtractPrintedDocument(t *testing.T) {
	text := strings.Repeat("Compraventa-inmueble Santiago ", 30) + "\nF 5362 F"
	tl := &fakeTextLayer{text: text, pages: 2}
	ocr := &fakeDocumentOCR{pages: []string{"unused"}}
	metrics := NewMetricsCollector()
	p := NewPipeline(Collaborators{TextLayer: tl, DocumentOCR: ocr}, testExecutorConfig(), WithMetrics(metrics))

	result := p.ExtractBytes(context.Background(), "printed.pdf", pdfBytes)

	require.False(t, result.Metadata.Emergency)
	assert.True(t, result.Success)
	assert.Equal(t, TypePrinted, result.Metadata.Characteristics.DocumentType)
	assert.Equal(t, StrategyDirectText.String(), result.Metadata.ProcessingMetrics.SuccessfulMethod)
	assert.Len(t, result.Metadata.Attempts, 1)
	assert.Zero(t, ocr.calls.Load())
	assert.Equal(t, int32(1), tl.calls.Load())
	assert.Equal(t, 2, result.Metadata.PageCount)
	assert.Equal(t, DirectTextConfidence, result.Confidence)

	assert.NotContains(t, result.CleanText, "5362")
	assert.Equal(t, 1, result.CleaningStats.RemovedItems.FolioReferences)
	assert.Equal(t, text, result.RawText)

	assert.Greater(t, result.Metadata.HealthScore, 0.0)
	assert.LessOrEqual(t, result.Metadata.HealthScore, 100.0)
	assert.Equal(t, 1, metrics.Snapshot().Documents)
	assert.Same(t, metrics, p.Metrics())
}

func TestExtractBornDigitalProseSkipsOCR(t *testing.T) {
	tl := &fakeTextLayer{text: notarialProse, pages: 1}
	ocr := &fakeDocumentOCR{pages: []string{"unused"}}
	p := NewPipeline(Collaborators{TextLayer: tl, DocumentOCR: ocr}, testExecutorConfig())

	result := p.ExtractBytes(context.Background(), "escritura.pdf", pdfBytes)

	require.False(t, result.Metadata.Emergency)
	assert.Equal(t, TypePrinted, result.Metadata.Characteristics.DocumentType)
	assert.Equal(t, StrategyDirectText.String(), result.Metadata.ProcessingMetrics.SuccessfulMethod)
	assert.Zero(t, ocr.calls.Load())
	assert.Contains(t, result.CleanText, "año 1940")
	assert.Contains(t, result.CleanText, "Los Leones número 1234")
}

func TestExtractBytesRemovesTemporaryCopy(t *testing.T) {
	r := &fakeRasterizer{}
	cfg := testExecutorConfig()
	cfg.MaxPages = 1
	p := NewPipeline(Collaborators{
		Rasterizer: r,
		Vision:     &fakeVision{text: strings.Repeat("texto transcrito de la página ", 20)},
	}, cfg)

	result := p.ExtractBytes(context.Background(), "upload.pdf", pdfBytes)

	require.False(t, result.Metadata.Emergency)
	require.Len(t, r.paths, 1)
	assert.Equal(t, ".pdf", filepath.Ext(r.paths[0]))
	_, err := os.Stat(r.paths[0])
	assert.True(t, os.IsNotExist(err), "temporary copy should be removed")
}

func TestExtractFileUsesPathDirectly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escritura.pdf")
	require.NoError(t, os.WriteFile(path, pdfBytes, 0o600))

	r := &fakeRasterizer{}
	cfg := testExecutorConfig()
	cfg.MaxPages = 1
	p := NewPipeline(Collaborators{
		Rasterizer: r,
		Vision:     &fakeVision{text: strings.Repeat("texto transcrito de la página ", 20)},
	}, cfg)

	result := p.ExtractFile(context.Background(), path)

	require.False(t, result.Metadata.Emergency)
	assert.Equal(t, "escritura.pdf", result.Metadata.FileName)
	assert.Equal(t, []string{path}, r.paths)
	_, err := os.Stat(path)
	assert.NoError(t, err, "caller's file must be left alone")
}

func TestExtractConcurrentRunsShareMetrics(t *testing.T) {
	metrics := NewMetricsCollector()
	p := NewPipeline(Collaborators{
		DocumentOCR: &fakeDocumentOCR{pages: []string{strings.Repeat("texto reconocido ", 40)}},
	}, testExecutorConfig(), WithMetrics(metrics))

	var wg sync.WaitGroup
	results := make([]*Result, 20)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data := pdfBytes
			if i%2 == 1 {
				data = nil
			}
			results[i] = p.ExtractBytes(context.Background(), "doc.pdf", data)
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r.Success)
	}
	snap := metrics.Snapshot()
	assert.Equal(t, 20, snap.Documents)
	assert.Equal(t, 10, snap.Emergencies)
	assert.Equal(t, 10, snap.Successes)
}

func TestResultJSON(t *testing.T) {
	p := NewPipeline(Collaborators{}, testExecutorConfig())
	result := p.ExtractBytes(context.Background(), "empty.pdf", nil)

	data, err := result.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"success": true`)
	assert.Contains(t, string(data), `"emergency": true`)
}
