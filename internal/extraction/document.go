package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// MIME types recognized from file content.
const (
	MIMEPDF  = "application/pdf"
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEGIF  = "image/gif"
	MIMEWebP = "image/webp"
	MIMETIFF = "image/tiff"
	MIMEBMP  = "image/bmp"

	mimeUnknown = "application/octet-stream"
)

// Document is one input file for a pipeline run. It caches the local text
// layer and, for byte-only input, spills itself to a temporary file the first
// time a rasterizer needs a path.
type Document struct {
	Name     string
	Path     string
	Data     []byte
	MIMEType string

	textLoaded bool
	text       string
	pages      int
	textErr    error

	tempPath string
}

// NewDocument builds a Document and detects its type from content.
func NewDocument(name, path string, data []byte) *Document {
	if name == "" && path != "" {
		name = filepath.Base(path)
	}
	return &Document{
		Name:     name,
		Path:     path,
		Data:     data,
		MIMEType: DetectMIMEType(data),
	}
}

// Size returns the document size in bytes.
func (d *Document) Size() int64 {
	return int64(len(d.Data))
}

// IsPDF reports whether the document is a PDF.
func (d *Document) IsPDF() bool {
	return d.MIMEType == MIMEPDF
}

// IsImage reports whether the document is a supported image.
func (d *Document) IsImage() bool {
	return strings.HasPrefix(d.MIMEType, "image/")
}

// TextLayer returns the decoded text layer, calling ext at most once.
func (d *Document) TextLayer(ctx context.Context, ext TextLayerExtractor) (string, int, error) {
	if d.textLoaded {
		return d.text, d.pages, d.textErr
	}
	d.textLoaded = true

	switch {
	case ext == nil:
		d.textErr = ErrNotConfigured
	case !d.IsPDF():
		d.textErr = ErrUnsupportedFormat
	default:
		d.text, d.pages, d.textErr = ext.Extract(ctx, d.Data)
	}
	return d.text, d.pages, d.textErr
}

// hasTextLayer reports whether a previously loaded text layer holds text.
func (d *Document) hasTextLayer() bool {
	return d.textLoaded && d.textErr == nil && strings.TrimSpace(d.text) != ""
}

// knownPages returns the page count learned from the text layer, or 0.
func (d *Document) knownPages() int {
	if d.textLoaded && d.textErr == nil {
		return d.pages
	}
	return 0
}

// FilePath returns a path on disk holding the document.
func (d *Document) FilePath() (string, error) {
	if d.Path != "" {
		return d.Path, nil
	}
	if d.tempPath != "" {
		return d.tempPath, nil
	}

	f, err := os.CreateTemp("", "docextract-*"+extensionFor(d.MIMEType))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(d.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	d.tempPath = f.Name()
	return d.tempPath, nil
}

// Cleanup removes the temporary copy, if any. Failures are logged only.
func (d *Document) Cleanup(log zerolog.Logger) {
	if d.tempPath == "" {
		return
	}
	if err := os.Remove(d.tempPath); err != nil && !os.IsNotExist(err) {
		log.Warn().
			Err(err).
			Str("path", d.tempPath).
			Msg("Failed to remove temporary document copy")
	}
	d.tempPath = ""
}

// DetectMIMEType identifies PDFs and common image formats by their magic bytes.
func DetectMIMEType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return MIMEPDF
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return MIMEPNG
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return MIMEJPEG
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return MIMEGIF
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return MIMEWebP
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return MIMETIFF
	case bytes.HasPrefix(data, []byte("BM")) && len(data) > 14:
		return MIMEBMP
	default:
		return mimeUnknown
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case MIMEPDF:
		return ".pdf"
	case MIMEPNG:
		return ".png"
	case MIMEJPEG:
		return ".jpg"
	case MIMEGIF:
		return ".gif"
	case MIMEWebP:
		return ".webp"
	case MIMETIFF:
		return ".tiff"
	case MIMEBMP:
		return ".bmp"
	default:
		return ""
	}
}
