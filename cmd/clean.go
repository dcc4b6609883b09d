package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docextract/internal/cleaner"
	"docextract/internal/logger"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [text-file]",
	Short: "Clean already-extracted text",
	Long: `Run only the text cleaner on a UTF-8 text file: folio and repertorio
stamps and marginal numbers are removed, whitespace and punctuation are
normalized and common OCR confusions are corrected. Dates, names and legal
numbers are preserved.`,
	Example: `  docextract clean ocr.txt -o clean.txt
  docextract clean ocr.txt --stats`,
	Args: cobra.ExactArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	cleanCmd.Flags().Bool("stats", false, "Print cleaning statistics as JSON instead of the text")
}

func runClean(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("clean")

	outputPath, _ := cmd.Flags().GetString("output")
	statsOnly, _ := cmd.Flags().GetBool("stats")

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read text file: %w", err)
	}

	cleaned, stats := cleaner.Clean(string(raw))

	log.Info().
		Str("file", args[0]).
		Int("original_length", stats.OriginalLength).
		Int("cleaned_length", stats.CleanedLength).
		Int("folio_references", stats.RemovedItems.FolioReferences).
		Int("corrections", stats.Corrections).
		Msg("Text cleaned")

	out := []byte(cleaned + "\n")
	if statsOnly {
		if out, err = json.MarshalIndent(stats, "", "  "); err != nil {
			return fmt.Errorf("failed to encode statistics: %w", err)
		}
		out = append(out, '\n')
	}

	return writeOutput(out, outputPath, log)
}
