package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docextract/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "docextract",
	Short: "Extract clean text from scanned and digital legal documents",
	Long: `docextract turns PDFs and document images into clean text.

Each document is analyzed, then a prioritized list of extraction strategies
runs (embedded text layer, Document AI OCR, rendered pages transcribed by a
vision model) until one produces an excellent result. The best text is cleaned
of folio stamps, repertorio codes and marginal numbering. A document that
cannot be extracted still yields a result flagged for manual review.`,
	Version:      version,
	SilenceUsage: true,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
