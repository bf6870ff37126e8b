package ocr_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/ocr"
)

// Example reads the text layer of an invoice and falls back to Cloud Vision
// for scanned documents.
func Example() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	vision, err := ocr.NewGoogleVisionOCRService(ctx, ocr.VisionConfig{
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	})
	if err != nil {
		log.Fatalf("Failed to create Vision service: %v", err)
	}
	defer vision.Close()

	textSource := ocr.NewChainService(ocr.NewPDFTextService(), vision)

	pdfFile, err := os.Open("fatura.pdf")
	if err != nil {
		log.Fatalf("Failed to open PDF: %v", err)
	}
	defer pdfFile.Close()

	result, err := textSource.ProcessPDFWithMetadata(ctx, pdfFile)
	if err != nil {
		log.Fatalf("Failed to extract text: %v", err)
	}

	fmt.Printf("Source: %s, pages: %d\n%s\n", result.Source, result.PageCount, result.Text)
}
