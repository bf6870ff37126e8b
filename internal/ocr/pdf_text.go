package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
)

// MaxFileSizeBytes is the maximum accepted document size (20MB).
const MaxFileSizeBytes = 20 * 1024 * 1024

// PDFTextService extracts the embedded text layer of a PDF. Text runs on a
// page are joined with single spaces and pages are separated by a blank line.
type PDFTextService struct {
	log zerolog.Logger
}

// NewPDFTextService creates a text-layer extractor.
func NewPDFTextService() *PDFTextService {
	return &PDFTextService{
		log: logger.WithComponent("pdf-text"),
	}
}

// ProcessPDF extracts text from a PDF document.
func (s *PDFTextService) ProcessPDF(ctx context.Context, pdfData io.Reader) (string, error) {
	result, err := s.ProcessPDFWithMetadata(ctx, pdfData)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessPDFWithMetadata extracts text from a PDF document with page count
// and timing. A PDF without a text layer yields ErrEmptyDocument.
func (s *PDFTextService) ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*OCRResult, error) {
	const op = "PDFTextService.ProcessPDFWithMetadata"
	startTime := time.Now()

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, WrapTextError(op, err, "failed to read PDF data")
	}
	if err := validatePDFBytes(op, pdfBytes); err != nil {
		return nil, err
	}

	// Structural problems are only logged; the text reader often copes.
	pageCount, err := validateStructure(pdfBytes)
	if err != nil {
		s.log.Warn().
			Err(err).
			Int("size", len(pdfBytes)).
			Msg("PDF structure validation failed, attempting text extraction anyway")
	}

	pages, err := readPages(ctx, pdfBytes)
	if err != nil {
		return nil, WrapTextError(op, err, "failed to read text layer")
	}
	if pageCount == 0 {
		pageCount = len(pages)
	}

	text := strings.Join(pages, "\n\n")
	if strings.TrimSpace(text) == "" {
		return nil, WrapTextError(op, ErrEmptyDocument, fmt.Sprintf("%d pages without text layer", pageCount))
	}

	processedAt := time.Now()
	s.log.Debug().
		Int("pages", pageCount).
		Int("text_length", len(text)).
		Dur("duration", processedAt.Sub(startTime)).
		Msg("Text layer extracted")

	return &OCRResult{
		Text:               text,
		PageCount:          pageCount,
		Confidence:         1.0,
		Source:             SourcePDFText,
		ProcessedAt:        processedAt,
		ProcessingDuration: processedAt.Sub(startTime),
	}, nil
}

// validateStructure runs pdfcpu's relaxed validation and returns the page count.
func validateStructure(pdfBytes []byte) (pageCount int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pageCount = 0
			err = fmt.Errorf("pdfcpu read: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdfBytes), conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return pdfCtx.PageCount, nil
}

// readPages walks every page and joins its text runs. The reader panics on
// some malformed streams, which is reported as ErrInvalidPDF.
func readPages(ctx context.Context, pdfBytes []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	numPages := reader.NumPage()
	pages = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		var words []string
		for _, row := range rows {
			for _, word := range row.Content {
				if s := strings.TrimSpace(word.S); s != "" {
					words = append(words, s)
				}
			}
		}
		pages = append(pages, strings.Join(words, " "))
	}

	return pages, nil
}
