package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"docextract/internal/extraction"
	"docextract/internal/logger"
)

// VisionOCR implements extraction.ImageOCR using Google Cloud Vision API.
type VisionOCR struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

var _ extraction.ImageOCR = (*VisionOCR)(nil)

// NewVisionOCR creates a Vision client with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in env.
func NewVisionOCR(ctx context.Context) (*VisionOCR, error) {
	const op = "NewVisionOCR"

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return NewVisionOCRWithClient(client), nil
}

// NewVisionOCRWithClient creates the service with an explicit client.
func NewVisionOCRWithClient(client *vision.ImageAnnotatorClient) *VisionOCR {
	return &VisionOCR{
		client: client,
		log:    logger.WithComponent("ocr"),
	}
}

// Name identifies the service in result metadata.
func (g *VisionOCR) Name() string { return "google-vision" }

// DetectText runs document text detection on a PDF, TIFF or image.
func (g *VisionOCR) DetectText(ctx context.Context, data []byte, mimeType string) (extraction.ImageText, error) {
	const op = "DetectText"

	if len(data) > MaxFileSizeBytes {
		return extraction.ImageText{}, WrapOCRError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}

	var (
		result extraction.ImageText
		err    error
	)
	switch {
	case fileMIMETypes[mimeType]:
		result, err = g.annotateFile(ctx, data, mimeType)
	case imageMIMETypes[mimeType]:
		result, err = g.annotateImage(ctx, data)
	default:
		return extraction.ImageText{}, WrapOCRError(op, extraction.ErrUnsupportedFormat, fmt.Sprintf("mime type %q", mimeType))
	}
	if err != nil {
		return extraction.ImageText{}, WrapOCRError(op, err, "")
	}

	g.log.Debug().
		Str("mime_type", mimeType).
		Int("pages", result.Pages).
		Float64("confidence", result.Confidence).
		Msg("Vision text detection completed")

	return result, nil
}

func (g *VisionOCR) annotateFile(ctx context.Context, data []byte, mimeType string) (extraction.ImageText, error) {
	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  data,
					MimeType: mimeType,
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				Pages: syncPages(),
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return extraction.ImageText{}, fmt.Errorf("%w: Vision API call failed: %v", ErrOCRFailed, err)
	}
	if len(resp.Responses) == 0 {
		return extraction.ImageText{}, fmt.Errorf("%w: no response from Vision API", ErrOCRFailed)
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return extraction.ImageText{}, fmt.Errorf("%w: Vision API error: %s", ErrOCRFailed, fileResp.Error.Message)
	}
	return parseResponses(fileResp.Responses)
}

func (g *VisionOCR) annotateImage(ctx context.Context, data []byte) (extraction.ImageText, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return extraction.ImageText{}, fmt.Errorf("%w: Vision API call failed: %v", ErrOCRFailed, err)
	}
	return parseResponses(resp.Responses)
}

// parseResponses joins the page texts and averages the page confidences.
func parseResponses(responses []*visionpb.AnnotateImageResponse) (extraction.ImageText, error) {
	if len(responses) == 0 {
		return extraction.ImageText{}, ErrEmptyDocument
	}

	var (
		pages           []string
		confidenceSum   float64
		confidenceCount int
	)
	for pageIdx, page := range responses {
		if page.Error != nil {
			return extraction.ImageText{}, fmt.Errorf("%w: error processing page %d: %s", ErrOCRFailed, pageIdx+1, page.Error.Message)
		}
		annotation := page.GetFullTextAnnotation()
		if annotation == nil {
			continue
		}
		if text := strings.TrimSpace(annotation.Text); text != "" {
			pages = append(pages, text)
		}
		for _, p := range annotation.Pages {
			if p.Confidence > 0 {
				confidenceSum += float64(p.Confidence)
				confidenceCount++
			}
		}
	}

	if len(pages) == 0 {
		return extraction.ImageText{}, ErrEmptyDocument
	}

	var avgConfidence float64
	if confidenceCount > 0 {
		avgConfidence = confidenceSum / float64(confidenceCount)
	}

	return extraction.ImageText{
		Text:       strings.Join(pages, "\n\n"),
		Confidence: avgConfidence,
		Pages:      len(responses),
	}, nil
}

// Close closes the underlying Vision client.
func (g *VisionOCR) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
