package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/invoice"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file]",
	Short: "Extract the invoice record from a PDF",
	Long: `Run the extraction pipeline on one Equatorial Goiás invoice and print the
result envelope as JSON: {ok, hash, health, data}.

Local rules always run. When they report inconsistencies and USE_GPT=true,
the configured model completes the fields the rules could not read. Use
--local to skip the remote path regardless of configuration.

Optional environment variables:
  USE_GPT - "true" enables remote completion
  REMOTE_PROVIDER - openai or vertex (default: openai)
  OPENAI_API_KEY - OpenAI API key
  PRIMARY_MODEL / FALLBACK_MODEL - model names
  OCR_FALLBACK - none or vision (default: none)`,
	Example: `  # Extract to stdout
  extract-equatorial extract fatura.pdf

  # Local rules only, saved to a file
  extract-equatorial extract fatura.pdf --local -o fatura.json

  # Add file metadata to the envelope
  extract-equatorial extract fatura.pdf --metadata`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractOutput is the extraction envelope plus optional file metadata.
type ExtractOutput struct {
	*models.ExtractionOutcome
	Metadata *ProcessingMetadata `json:"metadata,omitempty"`
}

// ProcessingMetadata contains information about the processing operation
type ProcessingMetadata struct {
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size_bytes"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration string    `json:"processing_duration"`
	Local              bool      `json:"local"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("local", false, "Skip remote completion")
	extractCmd.Flags().BoolP("metadata", "m", false, "Include file metadata in output")
	extractCmd.Flags().Int("timeout", 180, "Processing timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	localOnly, _ := cmd.Flags().GetBool("local")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]

	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("file", pdfPath).
		Str("output", outputPath).
		Bool("local", localOnly).
		Int("timeout", timeoutSecs).
		Msg("Starting invoice extraction")

	fileInfo, err := validatePDFFile(pdfPath, log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	svc, cleanup, err := createExtractionService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release clients")
		}
	}()

	doc, err := os.ReadFile(pdfPath)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", pdfPath).
			Msg("Failed to read PDF file")
		return fmt.Errorf("failed to read PDF file: %w", err)
	}

	startTime := time.Now()
	outcome, err := extractDocument(ctx, svc, doc, localOnly)
	if err != nil {
		return handleExtractError(err, log)
	}
	processingDuration := time.Since(startTime)

	log.Info().
		Str("hash", outcome.Hash).
		Strs("inconsistencies", outcome.Health.Inconsistencies).
		Bool("remote_used", outcome.Health.RemoteUsed).
		Str("remote_outcome", outcome.Health.RemoteOutcome).
		Int("tokens_used", outcome.Health.TokensUsed).
		Dur("duration", processingDuration).
		Msg("Invoice extraction completed successfully")

	output := ExtractOutput{ExtractionOutcome: outcome}
	if includeMetadata {
		output.Metadata = &ProcessingMetadata{
			FileName:           filepath.Base(fileInfo.Name()),
			FileSize:           fileInfo.Size(),
			ProcessedAt:        time.Now(),
			ProcessingDuration: processingDuration.String(),
			Local:              localOnly,
		}
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON output")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	return writeOutput(data, outputPath, log)
}

func extractDocument(ctx context.Context, svc *invoice.Service, doc []byte, localOnly bool) (*models.ExtractionOutcome, error) {
	if localOnly {
		return svc.ProcessLocal(ctx, doc)
	}
	return svc.Process(ctx, doc)
}

// handleExtractError provides user-friendly error messages for extraction failures
func handleExtractError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Invoice extraction failed")

	switch {
	case errors.Is(err, invoice.ErrNoDocument):
		return fmt.Errorf("the file is empty")
	case errors.Is(err, invoice.ErrDocumentTooLarge):
		return fmt.Errorf("PDF file is too large (maximum 20MB)")
	case errors.Is(err, invoice.ErrContextCanceled), errors.Is(err, context.Canceled):
		return fmt.Errorf("invoice extraction was canceled or timed out. Try increasing --timeout")
	default:
		return fmt.Errorf("invoice extraction failed: %w", err)
	}
}
