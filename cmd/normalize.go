package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"factures/internal/logger"
	"factures/internal/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [raw.json|-]",
	Short: "Normalize a saved raw field map without calling any API",
	Long: `Read a raw field map (the JSON object returned by the extraction model,
optionally wrapped in code fences or prose) and print the normalized record.
Use "-" to read from stdin.`,
	Example: `  factures normalize raw.json --source facture.pdf --model gpt-4o-mini
  cat raw.json | factures normalize - --default-due-days 30`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	normalizeCmd.Flags().String("source", "", "Path of the original invoice, recorded as source_path")
	normalizeCmd.Flags().String("model", "", "Model name recorded on the record")
	normalizeCmd.Flags().Int("default-due-days", -1, "Due-date offset when nothing else resolves (default: DEFAULT_DUE_DAYS)")
	normalizeCmd.Flags().Bool("strict-iban", false, "Require a valid IBAN MOD-97 checksum")
	normalizeCmd.Flags().Bool("force-due-consistency", false, "Set due_date_exists to false when no due date resolves")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("normalize-cmd")

	cfg, err := getConfig()
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	source, _ := cmd.Flags().GetString("source")
	model, _ := cmd.Flags().GetString("model")

	opts := cfg.NormalizeOptions()
	if days, _ := cmd.Flags().GetInt("default-due-days"); days >= 0 {
		opts.DefaultDueDays = days
	}
	if cmd.Flags().Changed("strict-iban") {
		opts.StrictIBAN, _ = cmd.Flags().GetBool("strict-iban")
	}
	if cmd.Flags().Changed("force-due-consistency") {
		opts.ForceDueDateConsistency, _ = cmd.Flags().GetBool("force-due-consistency")
	}

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open raw field map: %w", err)
		}
		defer f.Close()
		in = f
	}

	raw, err := normalize.DecodeRawFieldMapFrom(in)
	if err != nil {
		return handleExtractError(err, log)
	}

	if source != "" {
		if abs, err := filepath.Abs(source); err == nil {
			source = abs
		}
	}

	rec := normalize.New(opts).Normalize(raw, normalize.Meta{SourcePath: source, Model: model})
	log.Debug().
		Int("fields", len(raw)).
		Bool("due_date_exists", rec.DueDateExists).
		Msg("Raw field map normalized")

	return writeJSON(cmd.OutOrStdout(), rec, outputPath, log)
}
