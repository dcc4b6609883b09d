package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"docextract/internal/config"
	"docextract/internal/extraction"
	"docextract/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract clean text from a PDF or document image",
	Long: `Run the extraction pipeline on one document and print the cleaned text.

The pipeline never fails on a readable path: when no strategy succeeds the
output is a manual-review notice and the JSON result is flagged as emergency.

Environment variables (all optional; missing ones disable a strategy):
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS - Google Cloud credentials
  GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID      - Document AI OCR processor
  VISION_PROVIDER (openai|gemini)                      - Vision model for rendered pages
  OPENAI_API_KEY / GEMINI_API_KEY                      - Vision model credentials
  PDFTOPPM_PATH, MAGICK_PATH                           - Page rasterizers`,
	Example: `  # Print cleaned text to stdout
  docextract extract escritura.pdf

  # Full result with metadata and attempts as JSON
  docextract extract escritura.pdf --json -o result.json

  # Uncleaned text of the best strategy
  docextract extract scan.jpg --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("json", false, "Output the full result as JSON")
	extractCmd.Flags().Bool("raw", false, "Output the uncleaned text")
	extractCmd.Flags().Int("timeout", 600, "Overall timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	rawOutput, _ := cmd.Flags().GetBool("raw")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	path := args[0]

	if jsonOutput && rawOutput {
		return fmt.Errorf("--json and --raw are mutually exclusive")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if _, err := validateInputFile(path, log); err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	pipeline, svc := newPipeline(ctx, cfg, log)
	defer svc.Close(log)

	result := pipeline.ExtractFile(ctx, path)
	logResult(log, result)

	var out []byte
	switch {
	case jsonOutput:
		if out, err = result.JSON(); err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	case rawOutput:
		out = []byte(result.RawText)
	default:
		out = []byte(result.CleanText)
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}

	return writeOutput(out, outputPath, log)
}

func logResult(log zerolog.Logger, result *extraction.Result) {
	event := log.Info()
	msg := "Extraction completed"
	if result.Metadata.Emergency {
		event = log.Warn().Strs("failure_reasons", result.Metadata.FailureReasons)
		msg = "Extraction failed, document requires manual review"
	}
	event.
		Str("file", result.Metadata.FileName).
		Str("run_id", result.Metadata.RunID).
		Str("method", result.Metadata.ProcessingMetrics.SuccessfulMethod).
		Float64("confidence", result.Confidence).
		Float64("health_score", result.Metadata.HealthScore).
		Int("characters", result.CleaningStats.CleanedLength).
		Int64("duration_ms", result.Metadata.ProcessingTimeMs).
		Msg(msg)
}

// validateInputFile checks that the path exists and is a regular, non-empty file.
func validateInputFile(path string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("file", path).Msg("File not found")
			return nil, fmt.Errorf("file not found: %s", path)
		}
		if os.IsPermission(err) {
			log.Error().Str("file", path).Msg("Permission denied accessing file")
			return nil, fmt.Errorf("permission denied accessing file: %s", path)
		}
		return nil, fmt.Errorf("error accessing file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().Str("file", path).Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}

	if fileInfo.Size() == 0 {
		log.Warn().Str("file", path).Msg("File is empty")
	}

	return fileInfo, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling extraction")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func writeOutput(data []byte, outputPath string, log zerolog.Logger) error {
	if outputPath == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(data)).
		Msg("Results written to file")
	return nil
}
