package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/services"
)

const defaultBatchWorkers = 4

var extractBatchCmd = &cobra.Command{
	Use:   "extract-batch [folder-path]",
	Short: "Extract every PDF invoice in a folder",
	Long: `Run the extraction pipeline on all PDF files below a folder with a pool of
parallel workers and write one JSON line per file.

Each line holds the file name, a status (success, warning, error) and the
extraction envelope. A file is marked warning when the local rules still
report inconsistencies after processing.

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 4)`,
	Example: `  # Extract a folder, JSON lines to stdout
  extract-equatorial extract-batch ./faturas

  # Local rules only, results to a file
  extract-equatorial extract-batch ./faturas --local -o resultados.jsonl

  # Eight workers
  extract-equatorial extract-batch ./faturas --workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: runExtractBatch,
}

// BatchResult represents the result of processing a single PDF
type BatchResult struct {
	Filename string                    `json:"filename"`
	Status   string                    `json:"status"` // "success", "warning", "error"
	Error    string                    `json:"error,omitempty"`
	Outcome  *models.ExtractionOutcome `json:"outcome,omitempty"`
	Index    int                       `json:"-"` // Original order index
}

// WorkerJob represents a PDF processing job
type WorkerJob struct {
	FilePath string
	Index    int
}

func init() {
	rootCmd.AddCommand(extractBatchCmd)

	extractBatchCmd.Flags().StringP("output", "o", "", "Output file path for JSON lines (default: stdout)")
	extractBatchCmd.Flags().Bool("local", false, "Skip remote completion")
	extractBatchCmd.Flags().Int("workers", 0, "Parallel workers (default: BATCH_WORKERS or 4)")
	extractBatchCmd.Flags().Int("timeout", 1800, "Total processing timeout in seconds")
	extractBatchCmd.Flags().Bool("verbose", false, "Log every processed file")
}

func runExtractBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract-batch")

	folderPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	localOnly, _ := cmd.Flags().GetBool("local")
	workers, _ := cmd.Flags().GetInt("workers")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	if workers <= 0 {
		workers = getNumWorkers()
	}

	log.Info().
		Str("folder", folderPath).
		Bool("local", localOnly).
		Int("workers", workers).
		Msg("Starting batch extraction")

	pdfFiles, err := findPDFFiles(folderPath)
	if err != nil {
		return fmt.Errorf("failed to find PDF files: %w", err)
	}
	if len(pdfFiles) == 0 {
		fmt.Fprintln(os.Stderr, "Nenhum PDF encontrado na pasta.")
		return nil
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

	fmt.Fprintf(os.Stderr, "Processando %d PDFs com %d workers...\n", len(pdfFiles), workers)

	results := processPDFsInParallel(ctx, pdfFiles, svc, localOnly, workers, log, verbose)

	successCount, warningCount, errorCount := countStatuses(results)

	var lines strings.Builder
	for _, result := range results {
		line, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		lines.Write(line)
		lines.WriteByte('\n')
	}
	if err := writeOutput([]byte(lines.String()), outputPath, log); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, strings.Repeat("=", 50))
	fmt.Fprintf(os.Stderr, "Sucesso: %d\n", successCount)
	if warningCount > 0 {
		fmt.Fprintf(os.Stderr, "Com inconsistências: %d\n", warningCount)
	}
	if errorCount > 0 {
		fmt.Fprintf(os.Stderr, "Erros: %d\n", errorCount)
	}

	log.Info().
		Int("total", len(pdfFiles)).
		Int("success", successCount).
		Int("warnings", warningCount).
		Int("errors", errorCount).
		Msg("Batch extraction completed")

	return nil
}

// findPDFFiles finds all PDF files in the specified folder
func findPDFFiles(folderPath string) ([]string, error) {
	var pdfFiles []string

	err := filepath.Walk(folderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".pdf") {
			pdfFiles = append(pdfFiles, path)
		}
		return nil
	})

	return pdfFiles, err
}

// getNumWorkers returns the number of workers from environment or default
func getNumWorkers() int {
	if workersStr := os.Getenv("BATCH_WORKERS"); workersStr != "" {
		if workers, err := strconv.Atoi(workersStr); err == nil && workers > 0 {
			return workers
		}
	}
	return defaultBatchWorkers
}

// processSinglePDF extracts one file. Errors are recorded in the result.
func processSinglePDF(ctx context.Context, pdfPath string, extractor services.InvoiceExtractor, localOnly bool) BatchResult {
	result := BatchResult{Status: "error"}

	doc, err := os.ReadFile(pdfPath)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read PDF file: %v", err)
		return result
	}

	run := extractor.Process
	if localOnly {
		run = extractor.ProcessLocal
	}
	outcome, err := run(ctx, doc)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Outcome = outcome
	result.Status = "success"
	if len(outcome.Health.Inconsistencies) > 0 {
		result.Status = "warning"
	}
	return result
}

// processPDFsInParallel processes PDFs using a worker pool pattern. Results
// keep the order of pdfFiles.
func processPDFsInParallel(ctx context.Context, pdfFiles []string, extractor services.InvoiceExtractor, localOnly bool, numWorkers int, log zerolog.Logger, verbose bool) []BatchResult {
	jobs := make(chan WorkerJob, len(pdfFiles))
	results := make([]BatchResult, len(pdfFiles))

	var processedCount int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				start := time.Now()
				result := processSinglePDF(ctx, job.FilePath, extractor, localOnly)
				result.Index = job.Index
				result.Filename = filepath.Base(job.FilePath)
				results[job.Index] = result

				mu.Lock()
				processedCount++
				currentCount := processedCount
				fmt.Fprintf(os.Stderr, "[%d/%d] %s - %s\n", currentCount, len(pdfFiles), result.Filename, result.Status)
				mu.Unlock()

				if verbose {
					event := log.Info()
					if result.Status == "error" {
						event = log.Warn().Str("error", result.Error)
					}
					event.
						Int("worker", workerID).
						Str("file", result.Filename).
						Str("status", result.Status).
						Dur("duration", time.Since(start)).
						Msg("PDF processed")
				}
			}
		}(w)
	}

	for i, pdfFile := range pdfFiles {
		jobs <- WorkerJob{FilePath: pdfFile, Index: i}
	}
	close(jobs)

	wg.Wait()
	return results
}

func countStatuses(results []BatchResult) (success, warning, failed int) {
	for _, result := range results {
		switch result.Status {
		case "success":
			success++
		case "warning":
			warning++
		case "error":
			failed++
		}
	}
	return success, warning, failed
}
