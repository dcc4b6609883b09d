package extraction

import (
	"errors"
	"fmt"
)

// Failure classes for a single strategy. None of them escape a Pipeline;
// they end up in attempt records and failure reasons.
var (
	// ErrExternalService is returned when an OCR or vision service is
	// unreachable or answers with an error.
	ErrExternalService = errors.New("external service failed")

	// ErrLocalParse is returned when the local text layer cannot be decoded.
	ErrLocalParse = errors.New("local text layer could not be decoded")

	// ErrRasterization is returned when a page cannot be converted to an image.
	ErrRasterization = errors.New("page rasterization failed")

	// ErrEmptyResult is returned when a strategy ran but produced no usable text.
	ErrEmptyResult = errors.New("extraction produced no usable text")

	// ErrNotConfigured is returned when the collaborator a strategy needs is absent.
	ErrNotConfigured = errors.New("collaborator not configured")

	// ErrUnsupportedFormat is returned when the file is neither a PDF nor a
	// supported image.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

var failureClasses = []error{
	ErrNotConfigured,
	ErrUnsupportedFormat,
	ErrEmptyResult,
	ErrRasterization,
	ErrLocalParse,
	ErrExternalService,
}

// StrategyError describes why one strategy failed.
type StrategyError struct {
	// Strategy is the strategy that failed.
	Strategy Strategy

	// Op is the step that failed (e.g., "RenderPage", "ProcessDocument").
	Op string

	// Err is the underlying error; errors.Is matches its failure class.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *StrategyError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extraction: %s %s failed: %s: %v", e.Strategy, e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extraction: %s %s failed: %v", e.Strategy, e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *StrategyError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *StrategyError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStrategyError creates a StrategyError for the given strategy and step.
func NewStrategyError(strategy Strategy, op string, err error, details string) *StrategyError {
	return &StrategyError{
		Strategy: strategy,
		Op:       op,
		Err:      err,
		Details:  details,
	}
}

// WrapStrategyError wraps err as a StrategyError of the given class if it
// isn't already one. A collaborator error that already carries a failure
// class keeps it; otherwise class is attached.
func WrapStrategyError(strategy Strategy, op string, class, err error, details string) error {
	if err == nil {
		return nil
	}

	var stratErr *StrategyError
	if errors.As(err, &stratErr) {
		return err // Already wrapped
	}

	if Class(err) == nil && class != nil {
		err = fmt.Errorf("%w: %w", class, err)
	}
	return NewStrategyError(strategy, op, err, details)
}

// Class returns the failure class err belongs to, or nil.
func Class(err error) error {
	for _, class := range failureClasses {
		if errors.Is(err, class) {
			return class
		}
	}
	return nil
}

// ClassName returns a short label for err's failure class.
func ClassName(err error) string {
	switch Class(err) {
	case ErrExternalService:
		return "external_service"
	case ErrLocalParse:
		return "local_parse"
	case ErrRasterization:
		return "rasterization"
	case ErrEmptyResult:
		return "empty_result"
	case ErrNotConfigured:
		return "not_configured"
	case ErrUnsupportedFormat:
		return "unsupported_format"
	default:
		return "unknown"
	}
}
