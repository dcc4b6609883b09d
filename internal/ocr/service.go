// Package ocr runs Google Cloud Vision text detection directly on document
// bytes. It serves as the direct-image fallback when local rasterization of
// a scanned PDF fails.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// Cloud Vision API Limitations:
//   - Maximum file size: 20MB for synchronous processing
//   - Maximum pages: 5 pages per synchronous file request
//   - File requests accept PDF, TIFF and GIF; other images go through image annotation
//
// Implementation Details:
//   - Uses DOCUMENT_TEXT_DETECTION for both files and single images
//   - Sends content inline (no GCS upload required)
//   - Joins page texts with blank lines in reading order
//   - Averages the per-page confidence reported by the full text annotation
package ocr

import "docextract/internal/extraction"

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of pages for synchronous processing
	MaxPagesSync = 5
)

// fileMIMETypes are annotated through BatchAnnotateFiles; every other image
// type goes through BatchAnnotateImages.
var fileMIMETypes = map[string]bool{
	extraction.MIMEPDF:  true,
	extraction.MIMETIFF: true,
	extraction.MIMEGIF:  true,
}

var imageMIMETypes = map[string]bool{
	extraction.MIMEPNG:  true,
	extraction.MIMEJPEG: true,
	extraction.MIMEWebP: true,
	extraction.MIMEBMP:  true,
}

// syncPages lists the pages requested from a file annotation.
func syncPages() []int32 {
	pages := make([]int32, MaxPagesSync)
	for i := range pages {
		pages[i] = int32(i + 1)
	}
	return pages
}
