package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"factures/internal/extract"
	"factures/internal/logger"
	"factures/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [file]",
	Short: "Extract text from an invoice using Google Cloud Vision OCR",
	Long: `Run Google Cloud Vision text detection on a PDF or image and print the text.
This is the text the OpenAI engine receives for PDFs, TIFFs and BMPs, useful
when a field comes out null and you want to see what the model was given.

PDFs are limited to 5 pages and 20MB for synchronous processing.`,
	Example: `  factures ocr facture.pdf
  factures ocr scan.tiff --json -o text.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput represents the JSON output structure when --json flag is used
type OCROutput struct {
	Text               string   `json:"text"`
	PageCount          int      `json:"page_count,omitempty"`
	Confidence         float32  `json:"confidence,omitempty"`
	LanguageCodes      []string `json:"language_codes,omitempty"`
	ProcessingDuration string   `json:"processing_duration,omitempty"`
	FileName           string   `json:"file_name"`
	FileSize           int      `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Bool("json", false, "Output as JSON with page count, confidence and languages")
	ocrCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	cfg, err := getConfig()
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	doc, err := extract.LoadDocument(args[0])
	if err != nil {
		return handleExtractError(err, log)
	}

	ctx, cancel := createContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	svc, err := ocr.NewGoogleVisionOCRService(ctx, cfg.GoogleClientOptions()...)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			return fmt.Errorf("Google Cloud credentials not configured. Set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS, " +
				"or run: gcloud auth application-default login")
		}
		return fmt.Errorf("failed to create OCR service: %w", err)
	}
	defer svc.Close()

	log.Info().
		Str("file", doc.Path).
		Int("size", len(doc.Data)).
		Msg("Processing document")

	result, err := svc.ProcessDocument(ctx, doc.Data, doc.MimeType)
	if err != nil {
		return handleOCRError(err, log)
	}

	log.Info().
		Int("page_count", result.PageCount).
		Float32("confidence", result.Confidence).
		Dur("duration", result.ProcessingDuration).
		Int("text_length", len(result.Text)).
		Msg("OCR processing completed successfully")

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), OCROutput{
			Text:               result.Text,
			PageCount:          result.PageCount,
			Confidence:         result.Confidence,
			LanguageCodes:      result.LanguageCodes,
			ProcessingDuration: result.ProcessingDuration.String(),
			FileName:           filepath.Base(doc.Path),
			FileSize:           len(doc.Data),
		}, outputPath, log)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(result.Text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	return err
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Debug().Err(err).Msg("OCR processing failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, ocr.ErrFileTooLarge):
		return fmt.Errorf("file is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages (maximum %d pages). Try splitting into smaller files", ocr.MaxPagesSync)
	case errors.Is(err, ocr.ErrCorruptDocument):
		return fmt.Errorf("the file content does not match its extension or is corrupted. Please check the file integrity")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the document")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Check GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Please ensure your service account has the 'Cloud Vision API User' role")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "ResourceExhausted"):
		return fmt.Errorf("Google Cloud Vision API quota exceeded. Check your project quotas in the Google Cloud Console")
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}
