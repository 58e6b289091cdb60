package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"factures/internal/config"
	"factures/internal/logger"
)

var version = "1.0.0"

// appConfig is set by Execute; commands fall back to config.Load when nil.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "factures",
	Short: "Extract and normalize invoice data from PDFs and scans",
	Long: `factures reads invoices (PDF, JPEG, PNG, BMP, TIFF, WEBP), extracts their
fields with OpenAI or Google Document AI, and normalizes them into typed records:
decimal amounts, ISO dates, IBAN/BIC/RIB, payment method and a due date inferred
from the payment terms when none is printed.

Results are written as JSON, or for whole folders to XLSX and Google Sheets.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with the configuration loaded by main.
func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")
	appConfig = cfg

	if err := rootCmd.Execute(); err != nil {
		log.Debug().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfig returns the configuration passed to Execute, loading it from
// the environment when main could not.
func getConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}
