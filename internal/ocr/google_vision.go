package ocr

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
)

// MaxPagesSync is the maximum number of pages for synchronous Vision processing.
const MaxPagesSync = 5

// VisionConfig holds Cloud Vision credentials. When both fields are empty
// Application Default Credentials are used.
type VisionConfig struct {
	CredentialsJSON string // inline service account JSON
	CredentialsFile string // path to a service account JSON file
}

// GoogleVisionOCRService implements OCRService using Google Cloud Vision API.
// It is the fallback source for scanned invoices without a text layer.
type GoogleVisionOCRService struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewGoogleVisionOCRService creates a Vision client from explicit credentials.
func NewGoogleVisionOCRService(ctx context.Context, cfg VisionConfig) (*GoogleVisionOCRService, error) {
	const op = "NewGoogleVisionOCRService"

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapTextError(op, ErrMissingCredentials, err.Error())
		}
		return nil, WrapTextError(op, err, "failed to create Vision client")
	}

	return NewGoogleVisionOCRServiceWithClient(client), nil
}

// NewGoogleVisionOCRServiceWithClient creates a new OCR service with an explicit client (for testing).
func NewGoogleVisionOCRServiceWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionOCRService {
	return &GoogleVisionOCRService{
		client: client,
		log:    logger.WithComponent("google-vision"),
	}
}

// ProcessPDF extracts text from a PDF document.
func (g *GoogleVisionOCRService) ProcessPDF(ctx context.Context, pdfData io.Reader) (string, error) {
	result, err := g.ProcessPDFWithMetadata(ctx, pdfData)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessPDFWithMetadata runs document text detection over the inline PDF.
func (g *GoogleVisionOCRService) ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*OCRResult, error) {
	const op = "GoogleVisionOCRService.ProcessPDFWithMetadata"
	startTime := time.Now()

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, WrapTextError(op, err, "failed to read PDF data")
	}
	if err := validatePDFBytes(op, pdfBytes); err != nil {
		return nil, err
	}

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdfBytes,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	g.log.Info().
		Int("size", len(pdfBytes)).
		Msg("Sending document to Cloud Vision")

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, WrapTextError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapTextError(op, ErrOCRFailed, "no response from Vision API")
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, WrapTextError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}

	result, err := collectVisionText(fileResp)
	if err != nil {
		return nil, WrapTextError(op, err, "failed to process Vision API response")
	}

	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	g.log.Info().
		Int("pages", result.PageCount).
		Float32("confidence", result.Confidence).
		Dur("duration", result.ProcessingDuration).
		Msg("Cloud Vision text detection completed")

	return result, nil
}

// collectVisionText joins page annotations with a blank line and averages
// page confidence.
func collectVisionText(fileResp *visionpb.AnnotateFileResponse) (*OCRResult, error) {
	pageCount := len(fileResp.Responses)
	if pageCount == 0 {
		return nil, ErrEmptyDocument
	}
	if pageCount > MaxPagesSync {
		return nil, fmt.Errorf("%w: document has %d pages", ErrTooManyPages, pageCount)
	}

	var pages []string
	var confidenceSum float32
	var confidenceCount int
	languageSet := map[string]bool{}

	for pageIdx, page := range fileResp.Responses {
		if page.Error != nil {
			return nil, fmt.Errorf("error processing page %d: %s", pageIdx+1, page.Error.Message)
		}
		annotation := page.FullTextAnnotation
		if annotation == nil {
			continue
		}

		pages = append(pages, annotation.Text)
		for _, p := range annotation.Pages {
			if p.Confidence > 0 {
				confidenceSum += p.Confidence
				confidenceCount++
			}
			if p.Property != nil {
				for _, lang := range p.Property.DetectedLanguages {
					if lang.LanguageCode != "" {
						languageSet[lang.LanguageCode] = true
					}
				}
			}
		}
	}

	text := strings.Join(pages, "\n\n")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	var avgConfidence float32
	if confidenceCount > 0 {
		avgConfidence = confidenceSum / float32(confidenceCount)
	}

	languages := make([]string, 0, len(languageSet))
	for lang := range languageSet {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	return &OCRResult{
		Text:          text,
		PageCount:     pageCount,
		Confidence:    avgConfidence,
		Source:        SourceVision,
		LanguageCodes: languages,
	}, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionOCRService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
