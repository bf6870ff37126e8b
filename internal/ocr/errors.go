package ocr

import (
	"context"
	"errors"
	"fmt"
)

// Text source names reported in OCRResult.Source.
const (
	SourcePDFText = "pdf_text"
	SourceVision  = "google_vision"
)

var (
	// ErrPDFTooLarge is returned for documents above MaxFileSizeBytes. It
	// stops a ChainService: no other source would accept the document.
	ErrPDFTooLarge = errors.New("document exceeds the 20MB upload limit")

	// ErrInvalidPDF is returned when the bytes lack a PDF header or pdfcpu
	// cannot read the structure. The pipeline treats this as empty text.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrOCRFailed is returned when Cloud Vision cannot annotate a scanned invoice.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials means OCR_FALLBACK=vision without usable Google credentials.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")

	// ErrTooManyPages is returned by Cloud Vision for documents above MaxPagesSync.
	ErrTooManyPages = errors.New("document has too many pages for synchronous OCR")

	// ErrEmptyDocument is returned when a source read the document but found
	// no text, e.g. a scanned invoice without a text layer.
	ErrEmptyDocument = errors.New("document contains no readable text")

	// ErrNoSources is returned by a ChainService built without sources.
	ErrNoSources = errors.New("no text sources configured")
)

// TextError records which text-source operation failed.
type TextError struct {
	Op      string // e.g. "PDFTextService.ProcessPDFWithMetadata"
	Err     error
	Details string
}

func (e *TextError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("text: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("text: %s failed: %v", e.Op, e.Err)
}

func (e *TextError) Unwrap() error {
	return e.Err
}

func (e *TextError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTextError creates a TextError.
func NewTextError(op string, err error, details string) *TextError {
	return &TextError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapTextError wraps err unless it already is a TextError, so the
// innermost operation stays visible.
func WrapTextError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var textErr *TextError
	if errors.As(err, &textErr) {
		return err
	}

	return NewTextError(op, err, details)
}

// stopsChain reports whether trying the next source is pointless.
func stopsChain(err error) bool {
	return errors.Is(err, ErrPDFTooLarge) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// validatePDFBytes checks size and header before any parsing.
func validatePDFBytes(op string, pdfBytes []byte) error {
	if len(pdfBytes) > MaxFileSizeBytes {
		return WrapTextError(op, ErrPDFTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return WrapTextError(op, ErrInvalidPDF, "missing PDF header")
	}
	return nil
}
