package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"docextract/internal/logger"
)

// Vision providers accepted in VISION_PROVIDER.
const (
	VisionProviderOpenAI = "openai"
	VisionProviderGemini = "gemini"
)

type Config struct {
	// Google Cloud Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string

	// Vision text-extraction service
	VisionProvider    string
	OpenAIAPIKey      string
	OpenAIVisionModel string
	GeminiAPIKey      string
	GeminiModel       string
	VisionMaxRetries  int

	// Rasterization
	PdftoppmPath   string
	MagickPath     string
	RenderMaxPages int
	RenderDPIA     int
	RenderDPIB     int

	// Pipeline
	StrategyTimeout time.Duration

	// Batch processing and reporting
	BatchWorkers         int
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		VisionProvider:             strings.ToLower(getEnv("VISION_PROVIDER", VisionProviderOpenAI)),
		OpenAIAPIKey:               getEnv("OPENAI_API_KEY", ""),
		OpenAIVisionModel:          getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
		GeminiAPIKey:               getEnv("GEMINI_API_KEY", ""),
		GeminiModel:                getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		VisionMaxRetries:           parseIntEnv("VISION_MAX_RETRIES", 2),
		PdftoppmPath:               getEnv("PDFTOPPM_PATH", "pdftoppm"),
		MagickPath:                 getEnv("MAGICK_PATH", "magick"),
		RenderMaxPages:             parseIntEnv("RENDER_MAX_PAGES", 3),
		RenderDPIA:                 parseIntEnv("RENDER_DPI_A", 200),
		RenderDPIB:                 parseIntEnv("RENDER_DPI_B", 300),
		StrategyTimeout:            time.Duration(parseIntEnv("STRATEGY_TIMEOUT_SECONDS", 90)) * time.Second,
		BatchWorkers:               parseIntEnv("BATCH_WORKERS", 4),
		GoogleSheetURL:             getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:       getEnv("GOOGLE_SHEET_WORKSHEET", "Extractions"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate rejects malformed values only. Missing credentials are allowed:
// the matching collaborator stays unconfigured and its strategies fail softly.
func (c *Config) validate() error {
	if c.VisionProvider != VisionProviderOpenAI && c.VisionProvider != VisionProviderGemini {
		return fmt.Errorf("VISION_PROVIDER must be %q or %q, got %q", VisionProviderOpenAI, VisionProviderGemini, c.VisionProvider)
	}
	if c.RenderMaxPages <= 0 {
		return fmt.Errorf("RENDER_MAX_PAGES must be positive")
	}
	if c.RenderDPIA <= 0 || c.RenderDPIB <= 0 {
		return fmt.Errorf("RENDER_DPI_A and RENDER_DPI_B must be positive")
	}
	if c.StrategyTimeout <= 0 {
		return fmt.Errorf("STRATEGY_TIMEOUT_SECONDS must be positive")
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive")
	}
	if c.VisionMaxRetries <= 0 {
		return fmt.Errorf("VISION_MAX_RETRIES must be positive")
	}
	return nil
}

// DocumentAIEnabled reports whether enough is configured to call Document AI.
func (c *Config) DocumentAIEnabled() bool {
	return c.GoogleCloudProject != "" && c.DocumentAIProcessorID != ""
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
