package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"docextract/internal/config"
	"docextract/internal/extraction"
	"docextract/internal/logger"
	"docextract/internal/sheets"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Extract every document in a folder in parallel",
	Long: `Extract every PDF and image in a folder with a pool of workers that share
one pipeline and one metrics collector. Cleaned text is written next to each
document (or into --out) as <name>.txt; process statistics are printed at
the end.

With --sheet the per-document report is appended to the Google Sheet in
GOOGLE_SHEET_URL (worksheet GOOGLE_SHEET_WORKSHEET).

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 4)`,
	Example: `  # Extract a folder of scanned deeds
  docextract batch ./escrituras

  # Write texts elsewhere and report to Google Sheets
  docextract batch ./escrituras --out ./textos --sheet`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// batchJob is one document queued for a worker.
type batchJob struct {
	Path  string
	Index int
}

var batchExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".webp": true, ".tif": true, ".tiff": true, ".bmp": true,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("out", "", "Directory for extracted texts (default: next to each document)")
	batchCmd.Flags().Bool("sheet", false, "Append the report to the Google Sheet in GOOGLE_SHEET_URL")
	batchCmd.Flags().Int("workers", 0, "Number of parallel workers (default: BATCH_WORKERS)")
	batchCmd.Flags().Int("timeout", 3600, "Overall timeout in seconds")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	folderPath := args[0]
	outDir, _ := cmd.Flags().GetString("out")
	writeSheet, _ := cmd.Flags().GetBool("sheet")
	numWorkers, _ := cmd.Flags().GetInt("workers")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if numWorkers <= 0 {
		numWorkers = cfg.BatchWorkers
	}
	if writeSheet && cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required with --sheet")
	}

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	files, err := findDocuments(folderPath)
	if err != nil {
		return fmt.Errorf("failed to find documents: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("No documents found in folder.")
		return nil
	}

	log.Info().
		Str("folder", folderPath).
		Int("documents", len(files)).
		Int("workers", numWorkers).
		Bool("sheet", writeSheet).
		Msg("Starting batch extraction")

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	pipeline, svc := newPipeline(ctx, cfg, log)
	defer svc.Close(log)

	fmt.Printf("Extracting %d documents with %d workers...\n\n", len(files), numWorkers)
	results := extractInParallel(ctx, pipeline, files, numWorkers, outDir, log)

	printSnapshot(pipeline.Metrics().Snapshot())

	if writeSheet {
		sheetsService, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		if err := sheetsService.WriteResults(ctx, results, cfg.GoogleSheetWorksheet); err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}
		fmt.Printf("Sheet: %s (%d rows)\n", cfg.GoogleSheetWorksheet, len(results))
	}

	return nil
}

// findDocuments lists supported files in the folder, sorted by path.
func findDocuments(folderPath string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(folderPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && batchExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// extractInParallel processes documents using a worker pool; results keep
// the input order.
func extractInParallel(ctx context.Context, pipeline *extraction.Pipeline, files []string, numWorkers int, outDir string, log zerolog.Logger) []*extraction.Result {
	jobs := make(chan batchJob, len(files))
	results := make([]*extraction.Result, len(files))

	var processedCount int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				log.Debug().
					Int("worker", workerID).
					Str("file", job.Path).
					Msg("Worker processing document")

				result := pipeline.ExtractFile(ctx, job.Path)
				results[job.Index] = result

				writeErr := writeText(job.Path, outDir, result.CleanText)
				if writeErr != nil {
					log.Error().Err(writeErr).Str("file", job.Path).Msg("Failed to write extracted text")
				}

				mu.Lock()
				processedCount++
				fmt.Printf("[%d/%d] %s - %s", processedCount, len(files), filepath.Base(job.Path), statusLabel(result))
				if writeErr != nil {
					fmt.Printf(" (write failed: %v)", writeErr)
				}
				fmt.Println()
				mu.Unlock()
			}
		}(w)
	}

	for i, path := range files {
		jobs <- batchJob{Path: path, Index: i}
	}
	close(jobs)

	wg.Wait()
	return results
}

func writeText(docPath, outDir, text string) error {
	dir := filepath.Dir(docPath)
	if outDir != "" {
		dir = outDir
	}
	name := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath)) + ".txt"
	return os.WriteFile(filepath.Join(dir, name), []byte(text+"\n"), 0o644)
}

func statusLabel(result *extraction.Result) string {
	if result.Metadata.Emergency {
		return "MANUAL REVIEW"
	}
	return fmt.Sprintf("%s (%.0f%%, health %.0f)",
		result.Metadata.ProcessingMetrics.SuccessfulMethod,
		result.Confidence*100,
		result.Metadata.HealthScore)
}

func printSnapshot(snap extraction.Snapshot) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Documents:       %d\n", snap.Documents)
	fmt.Printf("Extracted:       %d\n", snap.Successes)
	fmt.Printf("Manual review:   %d\n", snap.Emergencies)
	fmt.Printf("Average time:    %v\n", snap.AverageTime.Round(time.Millisecond))
	fmt.Printf("Average health:  %.1f\n", snap.AverageHealthScore)
	for _, name := range snap.StrategyNames() {
		stats := snap.Strategies[name]
		fmt.Printf("  %-18s %3d attempts, %3d ok (%.0f%%)\n", name, stats.Attempts, stats.Successes, stats.SuccessRate*100)
	}
	fmt.Println()
}
