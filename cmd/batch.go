package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"factures/internal/export"
	"factures/internal/extract"
	"factures/internal/logger"
	"factures/internal/normalize"
	"factures/internal/sheets"
	"factures/pkg/models"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Extract every invoice in a folder",
	Long: `Process every supported invoice in a folder (recursively) with a pool of
workers, then write one row per file to an XLSX workbook and/or a Google Sheet.

Failed files are kept in the output with status "failed" and the error text.

Google Sheets output is enabled when GOOGLE_SHEET_URL is set and --dry-run is
not given; it needs GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 4)
  GOOGLE_SHEET_WORKSHEET - Worksheet name (default: Factures)`,
	Example: `  # Process a folder and save a workbook
  factures batch ./factures --xlsx factures.xlsx

  # Test processing without writing to the sheet
  factures batch ./factures --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// processFunc extracts and normalizes one file.
type processFunc func(ctx context.Context, path string) (*models.InvoiceRecord, error)

// batchJob is one file queued for a worker.
type batchJob struct {
	Path  string
	Index int
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("xlsx", "", "Write results to this XLSX file")
	batchCmd.Flags().String("sheet", "", "Worksheet name (default: GOOGLE_SHEET_WORKSHEET)")
	batchCmd.Flags().Bool("dry-run", false, "Process files but don't write to Google Sheets")
	batchCmd.Flags().Int("workers", 0, "Number of parallel workers (default: BATCH_WORKERS)")
	batchCmd.Flags().String("engine", "", "Extraction engine: openai or documentai (default: EXTRACT_ENGINE)")
	batchCmd.Flags().Int("timeout", 0, "Timeout per file in seconds (default: EXTRACT_TIMEOUT_SECONDS)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	runID := uuid.NewString()
	log := logger.WithRunID(runID).With().Str("component", "batch").Logger()

	cfg, err := getConfig()
	if err != nil {
		return err
	}

	folderPath := args[0]
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	sheetName, _ := cmd.Flags().GetString("sheet")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	workers, _ := cmd.Flags().GetInt("workers")
	engine, _ := cmd.Flags().GetString("engine")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if workers < 1 {
		workers = cfg.BatchWorkers
	}
	if engine == "" {
		engine = cfg.ExtractEngine
	}
	if sheetName == "" {
		sheetName = cfg.GoogleSheetWorksheet
	}
	perFile := cfg.ExtractTimeout
	if timeoutSecs > 0 {
		perFile = time.Duration(timeoutSecs) * time.Second
	}
	writeSheet := !dryRun && cfg.GoogleSheetURL != ""
	if writeSheet {
		if err := cfg.ValidateSheets(); err != nil {
			return err
		}
	}

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	files, err := findDocuments(folderPath)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", folderPath, err)
	}

	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintf(out, "No supported files (%s) found in %s\n", strings.Join(extract.SupportedExtensions(), " "), folderPath)
		return nil
	}

	log.Info().
		Str("folder", folderPath).
		Int("files", len(files)).
		Int("workers", workers).
		Str("engine", engine).
		Bool("dry_run", dryRun).
		Msg("Starting batch processing")

	// the run as a whole is bounded by the per-file timeout times the queue depth per worker
	ctx, cancel := createContext(perFile*time.Duration((len(files)+workers-1)/workers+1), log)
	defer cancel()

	ex, closeFn, err := newExtractor(ctx, cfg, engine, log)
	if err != nil {
		return err
	}
	defer closeFn()

	n := normalize.New(cfg.NormalizeOptions()).WithLogger(logger.WithComponent("normalize").With().Str("run_id", runID).Logger())
	process := func(ctx context.Context, path string) (*models.InvoiceRecord, error) {
		fileCtx, cancel := context.WithTimeout(ctx, perFile)
		defer cancel()
		return extract.ProcessFile(fileCtx, ex, n, path)
	}

	fmt.Fprintf(out, "Processing %d files with %d workers (run %s)...\n", len(files), workers, runID)
	results := processDocuments(ctx, files, workers, process, out, log)

	ok, failed := countResults(results)
	fmt.Fprintf(out, "\nSucceeded: %d\nFailed: %d\n", ok, failed)

	if xlsxPath != "" {
		if err := export.SaveXLSX(xlsxPath, results); err != nil {
			return fmt.Errorf("failed to write XLSX: %w", err)
		}
		fmt.Fprintf(out, "Workbook: %s\n", xlsxPath)
	}

	if writeSheet {
		creds, err := cfg.GoogleCredentials()
		if err != nil {
			return err
		}
		svc, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL, creds)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		if err := svc.WriteResults(ctx, results, sheetName); err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}
		fmt.Fprintf(out, "Sheet: %s (%d rows)\nURL: %s\n", sheetName, len(results), cfg.GoogleSheetURL)
	}

	log.Info().
		Int("total", len(files)).
		Int("succeeded", ok).
		Int("failed", failed).
		Msg("Batch processing completed")

	return nil
}

// findDocuments lists the supported files under folderPath, sorted.
func findDocuments(folderPath string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(folderPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && extract.IsSupported(path) {
			files = append(files, path)
		}
		return nil
	})

	sort.Strings(files)
	return files, err
}

// processDocuments runs fn over files with a pool of workers. Results keep
// the order of files; a progress line per file goes to progress.
func processDocuments(ctx context.Context, files []string, workers int, fn processFunc, progress io.Writer, log zerolog.Logger) []models.ProcessingResult {
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan batchJob, len(files))
	results := make([]models.ProcessingResult, len(files))

	var processed int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				log.Debug().
					Int("worker", workerID).
					Str("file", job.Path).
					Int("index", job.Index+1).
					Msg("Worker processing file")

				result := models.ProcessingResult{Filename: job.Path}
				if err := ctx.Err(); err != nil {
					result.Status = models.StatusSkipped
					result.Err = err
				} else if rec, err := fn(ctx, job.Path); err != nil {
					result.Status = models.StatusFailed
					result.Err = err
					log.Warn().Err(err).Str("file", job.Path).Msg("File failed")
				} else {
					result.Status = models.StatusOK
					result.Record = rec
				}
				results[job.Index] = result

				mu.Lock()
				processed++
				line := fmt.Sprintf("[%d/%d] %s - %s", processed, len(files), filepath.Base(job.Path), result.Status)
				if result.Err != nil {
					line += " (" + result.Err.Error() + ")"
				}
				fmt.Fprintln(progress, line)
				mu.Unlock()
			}
		}(w)
	}

	for i, f := range files {
		jobs <- batchJob{Path: f, Index: i}
	}
	close(jobs)

	wg.Wait()
	return results
}

func countResults(results []models.ProcessingResult) (ok, failed int) {
	for _, r := range results {
		if r.Status == models.StatusOK {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
