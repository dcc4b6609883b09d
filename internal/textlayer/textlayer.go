// Package textlayer reads the embedded text layer of PDF documents with
// github.com/ledongthuc/pdf. No OCR is involved: scanned pages yield no text.
package textlayer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"docextract/internal/extraction"
	"docextract/internal/logger"
)

// ErrMalformedPDF is returned when the PDF structure cannot be decoded.
var ErrMalformedPDF = errors.New("malformed PDF document")

const pdfHeader = "%PDF"

// PDFExtractor implements extraction.TextLayerExtractor.
type PDFExtractor struct {
	log zerolog.Logger
}

var _ extraction.TextLayerExtractor = (*PDFExtractor)(nil)

// NewPDFExtractor creates a text layer extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{log: logger.WithComponent("textlayer")}
}

// Name identifies the extractor in result metadata.
func (e *PDFExtractor) Name() string { return "pdf-text-layer" }

// Extract returns the text of every page joined by blank lines, plus the page
// count. Pages the library cannot decode are skipped.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (text string, pageCount int, err error) {
	if len(data) < len(pdfHeader) || string(data[:len(pdfHeader)]) != pdfHeader {
		return "", 0, fmt.Errorf("textlayer: missing PDF header: %w", extraction.ErrUnsupportedFormat)
	}

	defer func() {
		if r := recover(); r != nil {
			text, pageCount = "", 0
			err = fmt.Errorf("textlayer: %w: %v", ErrMalformedPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("textlayer: %w: %v", ErrMalformedPDF, err)
	}

	pageCount = reader.NumPage()
	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		if pageText, ok := e.pageText(reader, i); ok {
			pages = append(pages, pageText)
		}
	}

	e.log.Debug().
		Int("pages", pageCount).
		Int("pages_with_text", len(pages)).
		Msg("Read PDF text layer")

	return strings.Join(pages, "\n\n"), pageCount, nil
}

func (e *PDFExtractor) pageText(reader *pdf.Reader, n int) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn().Int("page", n).Interface("panic", r).Msg("Skipping undecodable page")
			text, ok = "", false
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", false
	}
	raw, err := page.GetPlainText(nil)
	if err != nil {
		e.log.Warn().Err(err).Int("page", n).Msg("Skipping unreadable page")
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
