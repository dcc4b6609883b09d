package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract/internal/extraction"
)

func TestNewOpenAIExtractorRequiresKey(t *testing.T) {
	_, err := NewOpenAIExtractor(OpenAIConfig{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAIExtractText(t *testing.T) {
	var calls atomic.Int32
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"overloaded","type":"server_error"}}`, http.StatusInternalServerError)
			return
		}
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Escritura número 125"}}]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAIExtractor(OpenAIConfig{APIKey: "test", Model: "gpt-4o", MaxRetries: 2, BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	text, err := o.ExtractText(context.Background(), extraction.Image{Data: []byte("png"), MIMEType: extraction.MIMEPNG}, "Transcribe")

	require.NoError(t, err)
	assert.Equal(t, "Escritura número 125", text)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "openai/gpt-4o", o.Name())

	raw, _ := json.Marshal(body)
	assert.Contains(t, string(raw), "data:image/png;base64,cG5n")
	assert.Contains(t, string(raw), "Transcribe")
}
