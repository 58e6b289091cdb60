package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"factures/internal/extract"
	"factures/internal/logger"
	"factures/internal/normalize"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract and normalize one invoice",
	Long: `Send one invoice to the extraction engine and print the normalized record
as JSON.

Supported files: .pdf .jpg .jpeg .png .bmp .tiff .webp (maximum 20MB).

Engines:
  openai      OpenAI chat completion (OPENAI_API_KEY). PDFs, TIFFs and BMPs are
              read with Google Vision OCR first.
  documentai  Google Document AI invoice parser (GOOGLE_CLOUD_PROJECT,
              GOOGLE_CLOUD_LOCATION, DOCUMENT_AI_PROCESSOR_ID).`,
	Example: `  # Extract to stdout
  factures extract facture.pdf

  # Save the record and use Document AI
  factures extract scan.png --engine documentai -o facture.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().String("engine", "", "Extraction engine: openai or documentai (default: EXTRACT_ENGINE)")
	extractCmd.Flags().Int("timeout", 0, "Processing timeout in seconds (default: EXTRACT_TIMEOUT_SECONDS)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	cfg, err := getConfig()
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	engine, _ := cmd.Flags().GetString("engine")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	if engine == "" {
		engine = cfg.ExtractEngine
	}
	timeout := cfg.ExtractTimeout
	if timeoutSecs > 0 {
		timeout = time.Duration(timeoutSecs) * time.Second
	}

	path := args[0]
	log.Info().
		Str("file", path).
		Str("engine", engine).
		Dur("timeout", timeout).
		Msg("Starting invoice extraction")

	if !extract.IsSupported(path) {
		return handleExtractError(extract.WrapExtractionError("extract", path, extract.ErrUnsupportedFormat, ""), log)
	}

	ctx, cancel := createContext(timeout, log)
	defer cancel()

	ex, closeFn, err := newExtractor(ctx, cfg, engine, log)
	if err != nil {
		return err
	}
	defer closeFn()

	start := time.Now()
	rec, err := extract.ProcessFile(ctx, ex, normalize.New(cfg.NormalizeOptions()), path)
	if err != nil {
		return handleExtractError(err, log)
	}

	if err := normalize.ValidateRecord(rec); err != nil {
		log.Warn().Err(err).Msg("Record does not match the output schema")
	}

	log.Info().
		Str("source", rec.SourcePath).
		Str("model", rec.Model).
		Bool("due_date_exists", rec.DueDateExists).
		Dur("duration", time.Since(start)).
		Msg("Invoice extraction completed")

	return writeJSON(cmd.OutOrStdout(), rec, outputPath, log)
}
