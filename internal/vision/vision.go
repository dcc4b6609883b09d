// Package vision transcribes page images with vision-capable language
// models. Two backends implement extraction.VisionExtractor: OpenAI chat
// completions with image input, and Gemini GenerateContent with inline data.
package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// ErrMissingAPIKey is returned when the selected provider has no API key.
	ErrMissingAPIKey = errors.New("missing vision provider API key")

	// ErrEmptyResponse is returned when the model answers without any text.
	ErrEmptyResponse = errors.New("vision model returned no text")
)

// withRetries calls fn up to maxRetries times and returns the first
// non-empty transcription. Context errors stop the loop immediately.
func withRetries(ctx context.Context, log zerolog.Logger, op string, maxRetries int, fn func(context.Context) (string, error)) (string, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		text, err := fn(ctx)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyResponse
		}
		if err == nil {
			log.Debug().
				Int("attempt", attempt).
				Int("characters", len(text)).
				Msg("Vision transcription succeeded")
			return text, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: %w", op, ctx.Err())
		}
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_retries", maxRetries).
			Msg("Vision request failed, retrying")
	}

	return "", fmt.Errorf("%s: all %d attempts failed, last error: %w", op, maxRetries, lastErr)
}
