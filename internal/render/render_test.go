package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract/internal/extraction"
)

type call struct {
	name string
	args []string
}

// fakeRunner writes an image to the output path of every command listed in ok.
type fakeRunner struct {
	mu    sync.Mutex
	ok    map[string]bool
	calls []call
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()

	if !f.ok[name] {
		return nil, []byte("command not found"), errors.New("exit status 127")
	}

	out := args[len(args)-1]
	if name == "pdftoppm" {
		out += ".png"
		if contains(args, "-jpeg") {
			out = strings.TrimSuffix(out, ".png") + ".jpg"
		}
	}
	return nil, nil, os.WriteFile(out, []byte("image from "+name), 0o600)
}

func contains(args []string, s string) bool {
	for _, a := range args {
		if a == s {
			return true
		}
	}
	return false
}

func TestRenderWithPdftoppm(t *testing.T) {
	runner := &fakeRunner{ok: map[string]bool{"pdftoppm": true}}
	r := NewPageRendererWithRunner(DefaultConfig(), runner)

	img, err := r.Render(context.Background(), "/docs/a.pdf", 2, extraction.DefaultRenderConfigA(200))

	require.NoError(t, err)
	assert.Equal(t, extraction.MIMEPNG, img.MIMEType)
	assert.Equal(t, "image from pdftoppm", string(img.Data))

	require.Len(t, runner.calls, 1)
	args := runner.calls[0].args
	assert.Equal(t, []string{"-f", "2", "-l", "2", "-r", "200", "-png", "-gray", "-singlefile", "/docs/a.pdf"}, args[:len(args)-1])

	_, statErr := os.Stat(filepath.Dir(args[len(args)-1]))
	assert.True(t, os.IsNotExist(statErr), "render directory should be removed")
}

func TestRenderJPEG(t *testing.T) {
	runner := &fakeRunner{ok: map[string]bool{"pdftoppm": true}}
	r := NewPageRendererWithRunner(DefaultConfig(), runner)

	img, err := r.Render(context.Background(), "/docs/a.pdf", 1, extraction.DefaultRenderConfigB(300))

	require.NoError(t, err)
	assert.Equal(t, extraction.MIMEJPEG, img.MIMEType)
	args := runner.calls[0].args
	assert.Contains(t, args, "-jpeg")
	assert.Contains(t, args, "quality=95")
	assert.NotContains(t, args, "-gray")
}

func TestRenderFallsBackToMagick(t *testing.T) {
	runner := &fakeRunner{ok: map[string]bool{"magick": true}}
	r := NewPageRendererWithRunner(DefaultConfig(), runner)

	img, err := r.Render(context.Background(), "/docs/a.pdf", 3, extraction.DefaultRenderConfigB(300))

	require.NoError(t, err)
	assert.Equal(t, "image from magick", string(img.Data))
	require.Len(t, runner.calls, 2)
	assert.Equal(t, "magick", runner.calls[1].name)
	assert.Equal(t, []string{"-density", "300", "/docs/a.pdf[2]", "-quality", "95"}, runner.calls[1].args[:5])
}

func TestRenderBothConvertersFail(t *testing.T) {
	runner := &fakeRunner{}
	r := NewPageRendererWithRunner(DefaultConfig(), runner)

	_, err := r.Render(context.Background(), "/docs/a.pdf", 1, extraction.DefaultRenderConfigA(200))

	assert.ErrorIs(t, err, ErrRenderFailed)
	assert.Contains(t, err.Error(), "pdftoppm")
	assert.Contains(t, err.Error(), "magick")
	assert.Contains(t, err.Error(), "command not found")
	assert.Len(t, runner.calls, 2)
}

func TestRenderWithoutMagickFallback(t *testing.T) {
	runner := &fakeRunner{}
	r := NewPageRendererWithRunner(Config{Pdftoppm: "pdftoppm"}, runner)

	_, err := r.Render(context.Background(), "/docs/a.pdf", 1, extraction.DefaultRenderConfigA(200))

	assert.ErrorIs(t, err, ErrRenderFailed)
	assert.Len(t, runner.calls, 1)
}

func TestRenderRejectsInvalidInput(t *testing.T) {
	r := NewPageRendererWithRunner(DefaultConfig(), &fakeRunner{})

	_, err := r.Render(context.Background(), "/docs/a.pdf", 0, extraction.DefaultRenderConfigA(200))
	assert.Error(t, err)

	_, err = r.Render(context.Background(), "/docs/a.pdf", 1, extraction.DefaultRenderConfigA(0))
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...(truncated)", truncate("abcdef", 2))
}
