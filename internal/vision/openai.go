package vision

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"docextract/internal/extraction"
	"docextract/internal/logger"
)

// OpenAIConfig configures the OpenAI vision backend.
type OpenAIConfig struct {
	APIKey     string
	Model      string // gpt-4o, gpt-4.1
	MaxRetries int
	MaxTokens  int
	// BaseURL overrides the API endpoint, e.g. for a proxy.
	BaseURL string
}

// OpenAIExtractor implements extraction.VisionExtractor with chat completions.
type OpenAIExtractor struct {
	client *openai.Client
	config OpenAIConfig
	log    zerolog.Logger
}

var _ extraction.VisionExtractor = (*OpenAIExtractor)(nil)

// NewOpenAIExtractor creates the backend from an API key and model.
func NewOpenAIExtractor(config OpenAIConfig) (*OpenAIExtractor, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("NewOpenAIExtractor: %w: OPENAI_API_KEY is required", ErrMissingAPIKey)
	}
	if config.Model == "" {
		config.Model = openai.GPT4o
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIExtractor{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		log:    logger.WithComponent("vision-openai"),
	}, nil
}

// Name identifies the backend and model in result metadata.
func (o *OpenAIExtractor) Name() string { return "openai/" + o.config.Model }

// ExtractText sends the image with the instruction and returns the transcription.
func (o *OpenAIExtractor) ExtractText(ctx context.Context, img extraction.Image, instruction string) (string, error) {
	const op = "OpenAIExtractor.ExtractText"

	dataURL := fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
	req := openai.ChatCompletionRequest{
		Model:       o.config.Model,
		Temperature: 0,
		MaxTokens:   o.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: instruction},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	}

	return withRetries(ctx, o.log, op, o.config.MaxRetries, func(ctx context.Context) (string, error) {
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	})
}
