package extraction

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

var pdfBytes = []byte("%PDF-1.4\n% test document\n")

type fakeTextLayer struct {
	text  string
	pages int
	err   error
	calls atomic.Int32
}

func (f *fakeTextLayer) Extract(context.Context, []byte) (string, int, error) {
	f.calls.Add(1)
	return f.text, f.pages, f.err
}

func (f *fakeTextLayer) Name() string { return "fake-text-layer" }

type fakeDocumentOCR struct {
	pages []string
	err   error
	panic bool
	block bool
	calls atomic.Int32
}

func (f *fakeDocumentOCR) ProcessDocument(ctx context.Context, _ []byte, _ string) ([]string, error) {
	f.calls.Add(1)
	if f.panic {
		panic("decoder exploded")
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.pages, f.err
}

func (f *fakeDocumentOCR) Name() string { return "fake-ocr" }

type fakeRasterizer struct {
	mu    sync.Mutex
	fail  map[int]error
	pages []int
	paths []string
}

func (f *fakeRasterizer) Render(_ context.Context, path string, page int, cfg RenderConfig) (Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, page)
	f.paths = append(f.paths, path)
	if err := f.fail[page]; err != nil {
		return Image{}, err
	}
	return Image{Data: []byte(fmt.Sprintf("%s-page-%d", cfg.Name, page)), MIMEType: MIMEPNG}, nil
}

// fakeVision answers with textFor(image) when set, or with text.
type fakeVision struct {
	text    string
	textFor func(Image, string) string
	err     error
	calls   atomic.Int32
}

func (f *fakeVision) ExtractText(_ context.Context, img Image, instruction string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	if f.textFor != nil {
		return f.textFor(img, instruction), nil
	}
	return f.text, nil
}

func (f *fakeVision) Name() string { return "fake-vision" }

type fakeImageOCR struct {
	result ImageText
	err    error
	calls  atomic.Int32
}

func (f *fakeImageOCR) DetectText(context.Context, []byte, string) (ImageText, error) {
	f.calls.Add(1)
	return f.result, f.err
}

func (f *fakeImageOCR) Name() string { return "fake-image-ocr" }

// scoreByText scores known texts with fixed values and everything else 0.
type scoreByText map[string]float64

func (s scoreByText) Score(text string, _ float64) float64 {
	return s[text]
}

type panickingScorer struct{}

func (panickingScorer) Score(string, float64) float64 {
	panic("scorer bug")
}
