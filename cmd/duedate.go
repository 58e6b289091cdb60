package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"factures/internal/logger"
	"factures/internal/scalar"
	"factures/internal/terms"
)

var duedateCmd = &cobra.Command{
	Use:   "duedate",
	Short: "Infer a due date from payment terms",
	Example: `  factures duedate --invoice-date 2024-01-10 --terms "Net 30"
  factures duedate --invoice-date 2024-01-31 --terms "30 jours fin de mois" --json`,
	Args: cobra.NoArgs,
	RunE: runDuedate,
}

// DueDateOutput is the --json form of the duedate command.
type DueDateOutput struct {
	InvoiceDate string  `json:"invoice_date"`
	Terms       string  `json:"terms"`
	DueDate     *string `json:"due_date"`
	Rule        string  `json:"rule,omitempty"`
	Phrase      string  `json:"phrase,omitempty"`
}

func init() {
	rootCmd.AddCommand(duedateCmd)

	duedateCmd.Flags().String("invoice-date", "", "Invoice date (YYYY-MM-DD or any printed form)")
	duedateCmd.Flags().String("terms", "", "Payment terms text")
	duedateCmd.Flags().Bool("json", false, "Output as JSON")
	_ = duedateCmd.MarkFlagRequired("invoice-date")
	_ = duedateCmd.MarkFlagRequired("terms")
}

func runDuedate(cmd *cobra.Command, args []string) error {
	rawDate, _ := cmd.Flags().GetString("invoice-date")
	text, _ := cmd.Flags().GetString("terms")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	issued, ok := scalar.ParseFuzzyDate(rawDate)
	if !ok {
		return fmt.Errorf("invalid invoice date: %q", rawDate)
	}

	inf, found := terms.Infer(issued, text)

	if jsonOutput {
		out := DueDateOutput{
			InvoiceDate: issued.Format(scalar.ISODateLayout),
			Terms:       text,
		}
		if found {
			due := inf.Due.Format(scalar.ISODateLayout)
			out.DueDate = &due
			out.Rule = inf.Family.String()
			out.Phrase = inf.Phrase
		}
		return writeJSON(cmd.OutOrStdout(), out, "", logger.WithComponent("duedate"))
	}

	if !found {
		return fmt.Errorf("no due date can be inferred from %q", text)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), inf.Due.Format(scalar.ISODateLayout))
	return err
}
