// Package ocr turns invoice PDFs into plain text for the field extractor.
//
// Two text sources are provided:
//   - PDFTextService reads the embedded text layer page by page. It is local,
//     fast and free, and handles every invoice the distributor generates
//     digitally.
//   - GoogleVisionOCRService runs Cloud Vision document text detection and is
//     meant for scanned invoices with no text layer.
//
// ChainService tries sources in order and returns the first non-empty text,
// so the Vision fallback is only billed when the text layer is empty.
//
// Limits:
//   - Maximum file size: 20MB
//   - Cloud Vision synchronous processing handles at most 5 pages
package ocr

import (
	"context"
	"io"
	"time"
)

// OCRService defines the interface for document text extraction services.
type OCRService interface {
	// ProcessPDF extracts text from a PDF document.
	// Returns the concatenated text from all pages.
	ProcessPDF(ctx context.Context, pdfData io.Reader) (string, error)

	// ProcessPDFWithMetadata extracts text from a PDF document with additional metadata.
	ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*OCRResult, error)
}

// OCRResult contains the results of text extraction with metadata.
type OCRResult struct {
	// Text is the extracted text content from all pages, pages separated by a blank line.
	Text string `json:"text"`

	// PageCount is the number of pages that were processed.
	PageCount int `json:"page_count"`

	// Confidence is the average confidence score (0.0 to 1.0). Text layers report 1.0.
	Confidence float32 `json:"confidence"`

	// Source names the service that produced the text (SourcePDFText, SourceVision).
	Source string `json:"source"`

	// ProcessedAt is the timestamp when processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// LanguageCodes contains the detected languages in the document.
	LanguageCodes []string `json:"language_codes,omitempty"`

	// ProcessingDuration is how long processing took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}
