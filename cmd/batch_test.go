package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract/internal/config"
	"docextract/internal/extraction"
)

func TestFindDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.PDF", "a.jpg", "notes.txt", "sub/c.tiff"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	}

	files, err := findDocuments(dir)

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.PDF"),
		filepath.Join(dir, "sub", "c.tiff"),
	}, files)
}

func TestWriteText(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()

	require.NoError(t, writeText(filepath.Join(dir, "escritura.pdf"), "", "texto"))
	require.NoError(t, writeText(filepath.Join(dir, "escritura.pdf"), out, "otro"))

	data, err := os.ReadFile(filepath.Join(dir, "escritura.txt"))
	require.NoError(t, err)
	assert.Equal(t, "texto\n", string(data))

	data, err = os.ReadFile(filepath.Join(out, "escritura.txt"))
	require.NoError(t, err)
	assert.Equal(t, "otro\n", string(data))
}

func TestExecutorConfig(t *testing.T) {
	cfg := &config.Config{RenderMaxPages: 5, RenderDPIA: 150, RenderDPIB: 400, StrategyTimeout: time.Minute}

	ec := executorConfig(cfg)

	assert.Equal(t, 5, ec.MaxPages)
	assert.Equal(t, 150, ec.RenderA.DPI)
	assert.Equal(t, 400, ec.RenderB.DPI)
	assert.Equal(t, extraction.InstructionMixed, ec.RenderB.Instruction)
	assert.Equal(t, time.Minute, ec.Timeout)
}

func TestStatusLabel(t *testing.T) {
	emergency := &extraction.Result{Metadata: extraction.Metadata{Emergency: true}}
	assert.Equal(t, "MANUAL REVIEW", statusLabel(emergency))

	ok := &extraction.Result{Confidence: 0.95, Metadata: extraction.Metadata{HealthScore: 71.6}}
	ok.Metadata.ProcessingMetrics.SuccessfulMethod = "direct_text"
	assert.Equal(t, "direct_text (95%, health 72)", statusLabel(ok))
}
