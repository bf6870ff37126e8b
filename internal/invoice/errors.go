package invoice

import (
	"errors"
	"fmt"
)

// Common invoice extraction errors
var (
	// ErrNoDocument is returned when no document bytes or text were provided.
	// It is the only input condition reported to clients as a failure.
	ErrNoDocument = errors.New("no invoice document provided")

	// ErrDocumentTooLarge is returned when the document exceeds the upload limit.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")

	// ErrInvalidConfiguration is returned when a service is built with
	// missing or contradictory settings.
	ErrInvalidConfiguration = errors.New("invalid extraction configuration")

	// ErrContextCanceled is returned when processing is canceled via context.
	ErrContextCanceled = errors.New("invoice extraction was canceled")
)

// ExtractionError wraps errors with additional context about invoice extraction failures.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "Extract", "parse").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string

	// Hash is the document fingerprint (if available).
	Hash string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("invoice: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	if e.Hash != "" {
		return fmt.Sprintf("invoice: %s failed (hash: %s): %v", e.Op, e.Hash, e.Err)
	}
	return fmt.Sprintf("invoice: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExtractionError creates a new ExtractionError with the specified operation and underlying error.
func NewExtractionError(op string, err error, details string) *ExtractionError {
	return &ExtractionError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return err // Already wrapped
	}

	return NewExtractionError(op, err, details)
}
