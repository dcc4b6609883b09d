// Package documentai submits whole documents to a Google Document AI OCR
// processor and returns the recognized text page by page.
//
// Required configuration:
//   - GOOGLE_CLOUD_PROJECT: project hosting the processor
//   - DOCUMENT_AI_PROCESSOR_ID: OCR processor ID
//   - GOOGLE_CREDENTIALS (inline JSON) or GOOGLE_APPLICATION_CREDENTIALS (file path)
//
// Optional: GOOGLE_CLOUD_LOCATION ("us" by default) and DOCUMENT_AI_PROCESSOR_VERSION.
package documentai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"docextract/internal/extraction"
	"docextract/internal/logger"
)

// MaxDocumentSizeBytes is the inline request limit for online processing (20MB).
const MaxDocumentSizeBytes = 20 * 1024 * 1024

// supportedMIMETypes lists the raw document types the OCR processor accepts.
var supportedMIMETypes = map[string]bool{
	extraction.MIMEPDF:  true,
	extraction.MIMETIFF: true,
	extraction.MIMEGIF:  true,
	extraction.MIMEJPEG: true,
	extraction.MIMEPNG:  true,
	extraction.MIMEBMP:  true,
	extraction.MIMEWebP: true,
}

// Config holds the processor coordinates.
type Config struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
}

// Processor implements extraction.DocumentOCR using Google Document AI.
type Processor struct {
	client *documentai.DocumentProcessorClient
	config Config
	log    zerolog.Logger
}

var _ extraction.DocumentOCR = (*Processor)(nil)

// NewProcessor creates a processor client with credentials from the environment.
func NewProcessor(ctx context.Context, config Config) (*Processor, error) {
	const op = "NewProcessor"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, WrapProcessorError(op, ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	clientOptions := clientOptions(config.Location)
	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapProcessorError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapProcessorError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return NewProcessorWithClient(config, client), nil
}

// NewProcessorWithClient creates a processor with an explicit client.
func NewProcessorWithClient(config Config, client *documentai.DocumentProcessorClient) *Processor {
	return &Processor{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}
}

func clientOptions(location string) []option.ClientOption {
	var opts []option.ClientOption

	// Non-default locations are served from regional endpoints.
	if location != "" && location != "us" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", location)))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}
	return opts
}

// Name identifies the processor in result metadata.
func (p *Processor) Name() string {
	return "document-ai/" + p.config.ProcessorID
}

// ProcessDocument runs OCR on the document and returns one text per page.
func (p *Processor) ProcessDocument(ctx context.Context, data []byte, mimeType string) ([]string, error) {
	const op = "ProcessDocument"

	if !supportedMIMETypes[mimeType] {
		return nil, WrapProcessorError(op, extraction.ErrUnsupportedFormat, fmt.Sprintf("mime type %q", mimeType))
	}
	if len(data) > MaxDocumentSizeBytes {
		return nil, WrapProcessorError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}

	req := &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	}

	resp, err := p.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, p.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, WrapProcessorError(op, ErrProcessingFailed, "no document in response")
	}

	pages := pageTexts(resp.Document)

	p.log.Debug().
		Str("mime_type", mimeType).
		Int("pages", len(pages)).
		Int("characters", len(resp.Document.Text)).
		Msg("Document AI OCR completed")

	return pages, nil
}

// processorName constructs the full resource name for the processor.
func (p *Processor) processorName() string {
	if p.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			p.config.ProjectID, p.config.Location, p.config.ProcessorID, p.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, p.config.ProcessorID)
}

// handleProcessingError converts Document AI errors to package errors.
func (p *Processor) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	var procErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(errStr, "DeadlineExceeded"):
		procErr = NewProcessorError(op, context.DeadlineExceeded, "processing timeout", p.config.ProcessorID)
	case errors.Is(err, context.Canceled) || strings.Contains(errStr, "Canceled"):
		procErr = NewProcessorError(op, ErrContextCanceled, "processing was canceled", p.config.ProcessorID)
	case strings.Contains(errStr, "PERMISSION_DENIED") || strings.Contains(errStr, "PermissionDenied"):
		procErr = NewProcessorError(op, ErrInvalidCredentials, "insufficient permissions for Document AI", p.config.ProcessorID)
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "ResourceExhausted"):
		procErr = NewProcessorError(op, ErrQuotaExceeded, "Document AI API quota exceeded", p.config.ProcessorID)
	case strings.Contains(errStr, "NOT_FOUND") || strings.Contains(errStr, "NotFound"):
		procErr = NewProcessorError(op, ErrProcessorNotFound, "processor not found", p.config.ProcessorID)
	case strings.Contains(errStr, "INVALID_ARGUMENT") || strings.Contains(errStr, "InvalidArgument"):
		procErr = NewProcessorError(op, ErrInvalidDocument, errStr, p.config.ProcessorID)
	default:
		procErr = NewProcessorError(op, ErrProcessingFailed, fmt.Sprintf("Document AI error: %v", err), p.config.ProcessorID)
	}

	p.log.Warn().Err(err).Str("processor_id", p.config.ProcessorID).Msg("Document AI request failed")
	return procErr
}

// pageTexts slices the document text by each page layout's text anchor.
// Documents without page layouts are returned as a single page.
func pageTexts(doc *documentaipb.Document) []string {
	runes := []rune(doc.GetText())
	if len(doc.GetPages()) == 0 {
		if len(runes) == 0 {
			return nil
		}
		return []string{string(runes)}
	}

	pages := make([]string, 0, len(doc.GetPages()))
	for _, page := range doc.GetPages() {
		var b strings.Builder
		for _, seg := range page.GetLayout().GetTextAnchor().GetTextSegments() {
			start, end := int(seg.GetStartIndex()), int(seg.GetEndIndex())
			if start < 0 || end > len(runes) || start >= end {
				continue
			}
			b.WriteString(string(runes[start:end]))
		}
		pages = append(pages, b.String())
	}
	return pages
}

// Close closes the underlying Document AI client.
func (p *Processor) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
