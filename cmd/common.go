package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"factures/internal/config"
	"factures/internal/extract"
	"factures/internal/normalize"
	"factures/internal/ocr"
)

// createContext creates a context with timeout and signal handling
func createContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(log.WithContext(context.Background()), timeout)

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

// newExtractor builds the configured extraction engine. The returned close
// function releases its Google clients.
func newExtractor(ctx context.Context, cfg *config.Config, engine string, log zerolog.Logger) (extract.Extractor, func(), error) {
	if err := cfg.ValidateEngine(engine); err != nil {
		return nil, nil, err
	}

	switch engine {
	case extract.EngineDocumentAI:
		ex, err := extract.NewDocumentAIExtractor(ctx, cfg.DocumentAIConfig(), cfg.GoogleClientOptions()...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Document AI extractor: %w", err)
		}
		log.Debug().Str("processor", cfg.DocumentAIProcessorID).Msg("Document AI extractor created")
		return ex, func() { _ = ex.Close() }, nil

	default:
		// PDFs, TIFFs and BMPs need OCR; images still work without it
		var ocrService ocr.OCRService
		closeOCR := func() {}
		vision, err := ocr.NewGoogleVisionOCRService(ctx, cfg.GoogleClientOptions()...)
		if err != nil {
			log.Warn().
				Err(err).
				Msg("Google Vision OCR unavailable, only JPEG, PNG and WEBP files can be processed")
		} else {
			ocrService = vision
			closeOCR = func() { _ = vision.Close() }
		}

		ex, err := extract.NewOpenAIExtractor(cfg.OpenAIConfig(), ocrService)
		if err != nil {
			closeOCR()
			return nil, nil, fmt.Errorf("failed to create OpenAI extractor: %w", err)
		}
		log.Debug().Str("model", ex.Model()).Bool("ocr", ocrService != nil).Msg("OpenAI extractor created")
		return ex, closeOCR, nil
	}
}

// handleExtractError provides user-friendly error messages for extraction failures
func handleExtractError(err error, log zerolog.Logger) error {
	log.Debug().Err(err).Msg("Extraction failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("extraction timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("extraction was canceled")
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported document: %w", err)
	case errors.Is(err, extract.ErrDocumentTooLarge):
		return fmt.Errorf("file is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, extract.ErrEmptyDocument):
		return fmt.Errorf("file is empty: %w", err)
	case errors.Is(err, normalize.ErrMalformedInput):
		return fmt.Errorf("the model did not return a usable field map: %w", err)
	case errors.Is(err, extract.ErrEmptyResponse):
		return fmt.Errorf("the model returned an empty answer: %w", err)
	case errors.Is(err, extract.ErrMissingAPIKey):
		return fmt.Errorf("OPENAI_API_KEY is not set. Add it to your environment or .env file")
	case errors.Is(err, extract.ErrProcessorNotFound):
		return fmt.Errorf("Document AI processor not found. Please check DOCUMENT_AI_PROCESSOR_ID")
	case errors.Is(err, extract.ErrInvalidCredentials),
		strings.Contains(errStr, "Unauthenticated"),
		strings.Contains(errStr, "invalid_grant"):
		return fmt.Errorf("Google Cloud authentication failed. Set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %w", err)
	case errors.Is(err, extract.ErrQuotaExceeded):
		return fmt.Errorf("API quota exceeded. Check your project quotas: %w", err)
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("document has too many pages for OCR (maximum %d). Try splitting the file", ocr.MaxPagesSync)
	default:
		return fmt.Errorf("extraction failed: %w", err)
	}
}

// writeJSON writes v as indented JSON to outputPath, or to w when empty.
func writeJSON(w io.Writer, v any, outputPath string, log zerolog.Logger) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	data = append(data, '\n')

	if outputPath == "" {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(data)).
		Msg("Output written to file")
	return nil
}
