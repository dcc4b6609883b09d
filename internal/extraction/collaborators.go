package extraction

import "context"

// TextLayerExtractor decodes the embedded text layer of a PDF.
// It returns ErrUnsupportedFormat for input that has no text layer format.
type TextLayerExtractor interface {
	Extract(ctx context.Context, data []byte) (text string, pageCount int, err error)
	Name() string
}

// DocumentOCR submits a whole document to an OCR document service and
// returns the text of each page in order.
type DocumentOCR interface {
	ProcessDocument(ctx context.Context, data []byte, mimeType string) ([]string, error)
	Name() string
}

// Rasterizer renders one page (1-based) of the PDF at path.
type Rasterizer interface {
	Render(ctx context.Context, path string, page int, cfg RenderConfig) (Image, error)
}

// VisionExtractor transcribes an image with a vision-capable model.
type VisionExtractor interface {
	ExtractText(ctx context.Context, img Image, instruction string) (string, error)
	Name() string
}

// ImageOCR runs text detection directly on document bytes without local
// rasterization.
type ImageOCR interface {
	DetectText(ctx context.Context, data []byte, mimeType string) (ImageText, error)
	Name() string
}

// Collaborators groups the external services a pipeline may call. Any of
// them may be nil; strategies needing a nil collaborator fail with
// ErrNotConfigured.
type Collaborators struct {
	TextLayer   TextLayerExtractor
	DocumentOCR DocumentOCR
	Rasterizer  Rasterizer
	Vision      VisionExtractor
	ImageOCR    ImageOCR
}
