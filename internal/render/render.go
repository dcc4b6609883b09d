// Package render rasterizes single PDF pages with poppler's pdftoppm, falling
// back to ImageMagick when pdftoppm is missing or fails.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"docextract/internal/extraction"
	"docextract/internal/logger"
)

// ErrRenderFailed is returned when no converter produced an image.
var ErrRenderFailed = errors.New("page rendering failed")

// Config names the converter binaries.
type Config struct {
	Pdftoppm string // path or name of pdftoppm
	Magick   string // path or name of ImageMagick's magick; empty disables the fallback
}

// DefaultConfig resolves both converters from PATH.
func DefaultConfig() Config {
	return Config{Pdftoppm: "pdftoppm", Magick: "magick"}
}

// PageRenderer implements extraction.Rasterizer.
type PageRenderer struct {
	cfg    Config
	runner Runner
	log    zerolog.Logger
}

var _ extraction.Rasterizer = (*PageRenderer)(nil)

// NewPageRenderer creates a renderer that executes the real converters.
func NewPageRenderer(cfg Config) *PageRenderer {
	log := logger.WithComponent("render")
	return NewPageRendererWithRunner(cfg, execRunner{log: log})
}

// NewPageRendererWithRunner creates a renderer with an explicit command runner.
func NewPageRendererWithRunner(cfg Config, runner Runner) *PageRenderer {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	return &PageRenderer{
		cfg:    cfg,
		runner: runner,
		log:    logger.WithComponent("render"),
	}
}

// Render converts page (1-based) of the PDF at path to a PNG or JPEG image.
func (r *PageRenderer) Render(ctx context.Context, path string, page int, cfg extraction.RenderConfig) (extraction.Image, error) {
	if page < 1 {
		return extraction.Image{}, fmt.Errorf("render: invalid page %d", page)
	}
	if cfg.DPI <= 0 {
		return extraction.Image{}, fmt.Errorf("render: invalid resolution %d", cfg.DPI)
	}

	tmpDir, err := os.MkdirTemp("", "docextract-render-*")
	if err != nil {
		return extraction.Image{}, fmt.Errorf("render: create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.log.Warn().Err(err).Str("dir", tmpDir).Msg("Failed to remove render directory")
		}
	}()

	ext, mimeType := ".png", extraction.MIMEPNG
	if cfg.Format == "jpeg" {
		ext, mimeType = ".jpg", extraction.MIMEJPEG
	}
	prefix := filepath.Join(tmpDir, "page")
	out := prefix + ext

	data, primaryErr := r.convert(ctx, out, r.cfg.Pdftoppm, pdftoppmArgs(path, prefix, page, cfg))
	if primaryErr == nil {
		return extraction.Image{Data: data, MIMEType: mimeType}, nil
	}
	if r.cfg.Magick == "" || ctx.Err() != nil {
		return extraction.Image{}, primaryErr
	}

	r.log.Debug().
		Err(primaryErr).
		Int("page", page).
		Msg("pdftoppm failed, trying ImageMagick")

	data, err = r.convert(ctx, out, r.cfg.Magick, magickArgs(path, out, page, cfg))
	if err != nil {
		return extraction.Image{}, errors.Join(primaryErr, err)
	}
	return extraction.Image{Data: data, MIMEType: mimeType}, nil
}

// convert runs one converter and reads the image it wrote to out.
func (r *PageRenderer) convert(ctx context.Context, out, name string, args []string) ([]byte, error) {
	_, stderr, err := r.runner.Run(ctx, name, args...)
	if err == nil {
		var data []byte
		if data, err = readImage(out); err == nil {
			return data, nil
		}
	}
	return nil, commandError(name, err, stderr)
}

// pdftoppmArgs renders exactly one page into prefix.png or prefix.jpg.
func pdftoppmArgs(path, prefix string, page int, cfg extraction.RenderConfig) []string {
	n := strconv.Itoa(page)
	args := []string{"-f", n, "-l", n, "-r", strconv.Itoa(cfg.DPI)}
	if cfg.Format == "jpeg" {
		args = append(args, "-jpeg")
		if cfg.JPEGQuality > 0 {
			args = append(args, "-jpegopt", "quality="+strconv.Itoa(cfg.JPEGQuality))
		}
	} else {
		args = append(args, "-png")
	}
	if cfg.Grayscale {
		args = append(args, "-gray")
	}
	return append(args, "-singlefile", path, prefix)
}

// magickArgs selects the page by its 0-based frame index.
func magickArgs(path, out string, page int, cfg extraction.RenderConfig) []string {
	args := []string{"-density", strconv.Itoa(cfg.DPI), fmt.Sprintf("%s[%d]", path, page-1)}
	if cfg.Grayscale {
		args = append(args, "-colorspace", "Gray")
	}
	if cfg.Format == "jpeg" && cfg.JPEGQuality > 0 {
		args = append(args, "-quality", strconv.Itoa(cfg.JPEGQuality))
	}
	return append(args, out)
}

func readImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", filepath.Base(path))
	}
	return data, nil
}

func commandError(name string, err error, stderr []byte) error {
	msg := strings.TrimSpace(truncate(string(stderr), 512))
	if msg == "" {
		return fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}
	return fmt.Errorf("%w: %s: %v: %s", ErrRenderFailed, name, err, msg)
}
