package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"docextract/internal/config"
	"docextract/internal/documentai"
	"docextract/internal/extraction"
	"docextract/internal/ocr"
	"docextract/internal/render"
	"docextract/internal/textlayer"
	"docextract/internal/vision"
)

// services holds the collaborators built from configuration and the
// clients that must be closed afterwards.
type services struct {
	deps    extraction.Collaborators
	closers []func() error
}

func (s *services) Close(log zerolog.Logger) {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("Failed to close client")
		}
	}
}

// newPipeline wires every configured collaborator into a pipeline. A
// collaborator that cannot be created is logged and left out.
func newPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...extraction.Option) (*extraction.Pipeline, *services) {
	svc := buildServices(ctx, cfg, log)
	return extraction.NewPipeline(svc.deps, executorConfig(cfg), opts...), svc
}

func executorConfig(cfg *config.Config) extraction.ExecutorConfig {
	return extraction.ExecutorConfig{
		MaxPages: cfg.RenderMaxPages,
		RenderA:  extraction.DefaultRenderConfigA(cfg.RenderDPIA),
		RenderB:  extraction.DefaultRenderConfigB(cfg.RenderDPIB),
		Timeout:  cfg.StrategyTimeout,
	}
}

func buildServices(ctx context.Context, cfg *config.Config, log zerolog.Logger) *services {
	svc := &services{}
	svc.deps.TextLayer = textlayer.NewPDFExtractor()
	svc.deps.Rasterizer = render.NewPageRenderer(render.Config{
		Pdftoppm: cfg.PdftoppmPath,
		Magick:   cfg.MagickPath,
	})

	if cfg.DocumentAIEnabled() {
		processor, err := documentai.NewProcessor(ctx, documentai.Config{
			ProjectID:        cfg.GoogleCloudProject,
			Location:         cfg.GoogleCloudLocation,
			ProcessorID:      cfg.DocumentAIProcessorID,
			ProcessorVersion: cfg.DocumentAIProcessorVersion,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Document AI unavailable, dedicated OCR strategy disabled")
		} else {
			svc.deps.DocumentOCR = processor
			svc.closers = append(svc.closers, processor.Close)
		}
	} else {
		log.Debug().Msg("Document AI not configured")
	}

	if hasGoogleCredentials() {
		visionOCR, err := ocr.NewVisionOCR(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Cloud Vision unavailable, direct-image fallback disabled")
		} else {
			svc.deps.ImageOCR = visionOCR
			svc.closers = append(svc.closers, visionOCR.Close)
		}
	}

	if extractor, err := newVisionExtractor(ctx, cfg); err != nil {
		log.Warn().Err(err).Str("provider", cfg.VisionProvider).Msg("Vision model unavailable, rendered-image strategies disabled")
	} else {
		svc.deps.Vision = extractor
	}

	return svc
}

func newVisionExtractor(ctx context.Context, cfg *config.Config) (extraction.VisionExtractor, error) {
	switch cfg.VisionProvider {
	case config.VisionProviderGemini:
		return vision.NewGeminiExtractor(ctx, vision.GeminiConfig{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			MaxRetries: cfg.VisionMaxRetries,
		})
	default:
		return vision.NewOpenAIExtractor(vision.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIVisionModel,
			MaxRetries: cfg.VisionMaxRetries,
		})
	}
}

func hasGoogleCredentials() bool {
	return os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" || os.Getenv("GOOGLE_CREDENTIALS") != ""
}
