package vision

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"docextract/internal/extraction"
	"docextract/internal/logger"
)

// GeminiConfig configures the Gemini vision backend.
type GeminiConfig struct {
	APIKey     string
	Model      string // gemini-2.5-flash, gemini-2.5-pro
	MaxRetries int
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// GeminiExtractor implements extraction.VisionExtractor with GenerateContent.
type GeminiExtractor struct {
	client *genai.Client
	config GeminiConfig
	log    zerolog.Logger
}

var _ extraction.VisionExtractor = (*GeminiExtractor)(nil)

// NewGeminiExtractor creates a Gemini API client.
func NewGeminiExtractor(ctx context.Context, config GeminiConfig) (*GeminiExtractor, error) {
	const op = "NewGeminiExtractor"

	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w: GEMINI_API_KEY is required", op, ErrMissingAPIKey)
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create Gemini client: %w", op, err)
	}

	return &GeminiExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("vision-gemini"),
	}, nil
}

// Name identifies the backend and model in result metadata.
func (g *GeminiExtractor) Name() string { return "gemini/" + g.config.Model }

// ExtractText sends the instruction and the inline image in one user turn.
func (g *GeminiExtractor) ExtractText(ctx context.Context, img extraction.Image, instruction string) (string, error) {
	const op = "GeminiExtractor.ExtractText"

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: instruction},
			{InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType}},
		},
	}}
	temp := float32(0)
	config := &genai.GenerateContentConfig{Temperature: &temp}

	return withRetries(ctx, g.log, op, g.config.MaxRetries, func(ctx context.Context) (string, error) {
		result, err := g.client.Models.GenerateContent(ctx, g.config.Model, contents, config)
		if err != nil {
			return "", err
		}
		if result == nil {
			return "", ErrEmptyResponse
		}
		return result.Text(), nil
	})
}
