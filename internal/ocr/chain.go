package ocr

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
)

// ChainService tries each source in order and returns the first result with
// non-empty text.
type ChainService struct {
	sources []OCRService
	log     zerolog.Logger
}

// NewChainService creates a chain over sources; nil entries are skipped.
func NewChainService(sources ...OCRService) *ChainService {
	kept := make([]OCRService, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &ChainService{
		sources: kept,
		log:     logger.WithComponent("text-chain"),
	}
}

// ProcessPDF extracts text from a PDF document.
func (c *ChainService) ProcessPDF(ctx context.Context, pdfData io.Reader) (string, error) {
	result, err := c.ProcessPDFWithMetadata(ctx, pdfData)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessPDFWithMetadata returns the first non-empty result. Oversized
// documents and context errors stop the chain.
func (c *ChainService) ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*OCRResult, error) {
	const op = "ChainService.ProcessPDFWithMetadata"

	if len(c.sources) == 0 {
		return nil, WrapTextError(op, ErrNoSources, "")
	}

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, WrapTextError(op, err, "failed to read PDF data")
	}

	var lastErr error
	for i, source := range c.sources {
		result, err := source.ProcessPDFWithMetadata(ctx, bytes.NewReader(pdfBytes))
		if err == nil && strings.TrimSpace(result.Text) != "" {
			if i > 0 {
				c.log.Info().
					Int("source_index", i).
					Str("source", result.Source).
					Msg("Text obtained from fallback source")
			}
			return result, nil
		}
		if err == nil {
			err = ErrEmptyDocument
		}
		lastErr = err

		if stopsChain(err) {
			break
		}
		c.log.Debug().
			Err(err).
			Int("source_index", i).
			Msg("Text source produced no text, trying next")
	}

	return nil, WrapTextError(op, lastErr, "no source produced text")
}
