package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/invoice"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/ocr"
)

var textCmd = &cobra.Command{
	Use:   "text [pdf-file]",
	Short: "Print the text the extractor reads from a PDF invoice",
	Long: `Read the text of a PDF invoice the same way the extraction pipeline does:
the embedded text layer first, Google Cloud Vision when OCR_FALLBACK=vision
and the text layer is empty.

Use --normalized to print the text after whitespace and Unicode
normalization, which is what the local rules actually match against.

Optional environment variables:
  OCR_FALLBACK - none or vision (default: none)
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string`,
	Example: `  # Print the text layer of fatura.pdf
  extract-equatorial text fatura.pdf

  # Print normalized text
  extract-equatorial text fatura.pdf --normalized

  # Include metadata and output as JSON
  extract-equatorial text fatura.pdf --metadata --json -o result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runText,
}

// TextOutput represents the JSON output structure when --json flag is used
type TextOutput struct {
	Text               string    `json:"text"`
	Normalized         bool      `json:"normalized"`
	Source             string    `json:"source,omitempty"`
	PageCount          int       `json:"page_count,omitempty"`
	Confidence         float32   `json:"confidence,omitempty"`
	LanguageCodes      []string  `json:"language_codes,omitempty"`
	ProcessedAt        time.Time `json:"processed_at,omitempty"`
	ProcessingDuration string    `json:"processing_duration,omitempty"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(textCmd)

	textCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	textCmd.Flags().BoolP("metadata", "m", false, "Include metadata in output")
	textCmd.Flags().Bool("json", false, "Output as JSON")
	textCmd.Flags().Bool("normalized", false, "Print normalized text")
	textCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runText(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("text")

	outputPath, _ := cmd.Flags().GetString("output")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	normalized, _ := cmd.Flags().GetBool("normalized")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]

	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("file", pdfPath).
		Str("output", outputPath).
		Bool("metadata", includeMetadata).
		Bool("json", jsonOutput).
		Bool("normalized", normalized).
		Int("timeout", timeoutSecs).
		Msg("Starting text extraction")

	fileInfo, err := validatePDFFile(pdfPath, log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	textSource, cleanup := createTextSource(ctx, cfg, log)
	defer func() {
		if err := cleanup.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release clients")
		}
	}()

	pdfFile, err := os.Open(pdfPath)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", pdfPath).
			Msg("Failed to open PDF file")
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer func() {
		if closeErr := pdfFile.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close PDF file")
		}
	}()

	result, err := textSource.ProcessPDFWithMetadata(ctx, pdfFile)
	if err != nil {
		return handleTextError(err, log)
	}
	if normalized {
		result.Text = invoice.Normalize(result.Text)
	}

	log.Info().
		Str("source", result.Source).
		Int("page_count", result.PageCount).
		Dur("duration", result.ProcessingDuration).
		Int("text_length", len(result.Text)).
		Msg("Text extraction completed successfully")

	return outputText(result, fileInfo, outputPath, jsonOutput, includeMetadata, normalized, log)
}

// validatePDFFile checks if the file exists, is readable, and appears to be a PDF
func validatePDFFile(pdfPath string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("PDF file not found")
			return nil, fmt.Errorf("PDF file not found: %s", pdfPath)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("Permission denied accessing PDF file")
			return nil, fmt.Errorf("permission denied accessing PDF file: %s", pdfPath)
		}
		return nil, fmt.Errorf("error accessing PDF file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", pdfPath).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", pdfPath)
	}

	if !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		log.Warn().
			Str("file", pdfPath).
			Msg("File does not have .pdf extension")
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", pdfPath).
			Msg("PDF file is empty")
		return nil, fmt.Errorf("PDF file is empty: %s", pdfPath)
	}

	if fileInfo.Size() > ocr.MaxFileSizeBytes {
		log.Error().
			Str("file", pdfPath).
			Int64("size", fileInfo.Size()).
			Int64("max_size", ocr.MaxFileSizeBytes).
			Msg("PDF file exceeds maximum size limit")
		return nil, fmt.Errorf("PDF file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), ocr.MaxFileSizeBytes)
	}

	return fileInfo, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// handleTextError turns text extraction failures into user-facing messages
func handleTextError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Text extraction failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("text extraction timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("text extraction was canceled")
	case errors.Is(err, ocr.ErrPDFTooLarge):
		return fmt.Errorf("PDF file is too large (maximum 20MB)")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages for Cloud Vision (maximum 5 pages)")
	case errors.Is(err, ocr.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the document. Set OCR_FALLBACK=vision for scanned invoices")
	case errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud credentials not configured. Set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed. This may be due to network issues, API quota limits, or service unavailability: %w", err)
	default:
		return fmt.Errorf("text extraction failed: %w", err)
	}
}

// writeOutput writes data to outputPath, or stdout when it is empty
func writeOutput(data []byte, outputPath string, log zerolog.Logger) error {
	if outputPath == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(data)).
		Msg("Results written to file")
	return nil
}

// outputText formats and outputs the extracted text
func outputText(result *ocr.OCRResult, fileInfo os.FileInfo, outputPath string, jsonOutput, includeMetadata, normalized bool, log zerolog.Logger) error {
	if jsonOutput {
		data, err := json.MarshalIndent(TextOutput{
			Text:               result.Text,
			Normalized:         normalized,
			Source:             result.Source,
			PageCount:          result.PageCount,
			Confidence:         result.Confidence,
			LanguageCodes:      result.LanguageCodes,
			ProcessedAt:        result.ProcessedAt,
			ProcessingDuration: result.ProcessingDuration.String(),
			FileName:           filepath.Base(fileInfo.Name()),
			FileSize:           fileInfo.Size(),
		}, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		return writeOutput(data, outputPath, log)
	}

	var output strings.Builder
	if includeMetadata {
		fmt.Fprintf(&output, "=== Text of %s ===\n", filepath.Base(fileInfo.Name()))
		fmt.Fprintf(&output, "File size: %d bytes\n", fileInfo.Size())
		fmt.Fprintf(&output, "Source: %s\n", result.Source)
		if result.PageCount > 0 {
			fmt.Fprintf(&output, "Pages processed: %d\n", result.PageCount)
		}
		if result.Confidence > 0 {
			fmt.Fprintf(&output, "Confidence: %.1f%%\n", result.Confidence*100)
		}
		if len(result.LanguageCodes) > 0 {
			fmt.Fprintf(&output, "Languages: %s\n", strings.Join(result.LanguageCodes, ", "))
		}
		fmt.Fprintf(&output, "Processing time: %v\n", result.ProcessingDuration)
		fmt.Fprintf(&output, "Processed at: %s\n", result.ProcessedAt.Format(time.RFC3339))
		output.WriteString("\n=== Text ===\n\n")
	}
	output.WriteString(result.Text)

	return writeOutput([]byte(output.String()), outputPath, log)
}
