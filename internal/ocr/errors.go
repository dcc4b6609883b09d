package ocr

import (
	"errors"
	"fmt"
)

// Text detection errors
var (
	// ErrFileTooLarge is returned when the document exceeds the 20MB limit
	// Cloud Vision applies to synchronous requests.
	ErrFileTooLarge = errors.New("file size exceeds the maximum limit (20MB)")

	// ErrOCRFailed is returned when the Vision API call or one of its pages fails.
	ErrOCRFailed = errors.New("text detection failed")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS is configured and no default credentials exist.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrEmptyDocument is returned when no text was detected on any page.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// DetectionError records which operation of a text detection failed.
type DetectionError struct {
	Op      string
	Err     error
	Details string
}

func (e *DetectionError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("ocr: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ocr: %s: %s: %v", e.Op, e.Details, e.Err)
}

func (e *DetectionError) Unwrap() error {
	return e.Err
}

// WrapOCRError wraps err in a DetectionError unless it already is one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var detErr *DetectionError
	if errors.As(err, &detErr) {
		return err
	}
	return &DetectionError{Op: op, Err: err, Details: details}
}
