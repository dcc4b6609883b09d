package documentai

import (
	"errors"
	"fmt"
)

// Document AI processing errors
var (
	// ErrProcessingFailed is returned when Document AI cannot process the document.
	ErrProcessingFailed = errors.New("document AI processing failed")

	// ErrInvalidCredentials is returned when the credentials lack the permissions
	// needed to call the processor.
	ErrInvalidCredentials = errors.New("invalid Google Cloud credentials")

	// ErrMissingCredentials is returned when no Google Cloud credentials are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials")

	// ErrInvalidConfiguration is returned when project or processor settings are missing.
	ErrInvalidConfiguration = errors.New("invalid Document AI configuration")

	// ErrProcessorNotFound is returned when the configured processor does not exist.
	ErrProcessorNotFound = errors.New("Document AI processor not found")

	// ErrQuotaExceeded is returned when Document AI API quota limits are exceeded.
	ErrQuotaExceeded = errors.New("Document AI API quota exceeded")

	// ErrDocumentTooLarge is returned when the document exceeds the inline size limit.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")

	// ErrInvalidDocument is returned when Document AI rejects the document content.
	ErrInvalidDocument = errors.New("document format not supported or corrupted")

	// ErrContextCanceled is returned when processing is canceled via context.
	ErrContextCanceled = errors.New("document processing was canceled")
)

// ProcessorError wraps errors with context about a Document AI call.
type ProcessorError struct {
	// Op is the operation that failed (e.g., "ProcessDocument").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string

	// ProcessorID is the Document AI processor used, if known.
	ProcessorID string
}

// Error implements the error interface.
func (e *ProcessorError) Error() string {
	msg := fmt.Sprintf("documentai: %s failed", e.Op)
	if e.ProcessorID != "" {
		msg += fmt.Sprintf(" (processor: %s)", e.ProcessorID)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ProcessorError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ProcessorError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewProcessorError creates a new ProcessorError.
func NewProcessorError(op string, err error, details, processorID string) *ProcessorError {
	return &ProcessorError{
		Op:          op,
		Err:         err,
		Details:     details,
		ProcessorID: processorID,
	}
}

// WrapProcessorError wraps an error as a ProcessorError if it isn't already one.
func WrapProcessorError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var procErr *ProcessorError
	if errors.As(err, &procErr) {
		return err
	}

	return NewProcessorError(op, err, details, "")
}
