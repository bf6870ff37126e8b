package services

import (
	"context"

	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

// InvoiceExtractor turns an uploaded invoice into an extraction outcome.
type InvoiceExtractor interface {
	// Process runs the hybrid pipeline: local rules first, remote completion
	// only when the local record is inconsistent and remote use is enabled.
	Process(ctx context.Context, doc []byte) (*models.ExtractionOutcome, error)

	// ProcessLocal runs the same pipeline with remote completion turned off.
	ProcessLocal(ctx context.Context, doc []byte) (*models.ExtractionOutcome, error)
}
