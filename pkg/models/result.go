package models

import "strings"

// Batch result statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ProcessingResult is the outcome of one file in a batch run.
type ProcessingResult struct {
	Filename string
	Record   *InvoiceRecord
	Err      error
	Status   string
}

// ResultColumns are the column headers shared by the tabular sinks.
var ResultColumns = []string{
	"File", "Status", "Invoice number", "Invoice date", "Supplier", "Supplier tax id",
	"Buyer", "Buyer tax id", "Currency", "Amount HT", "Amount TVA", "Amount TTC",
	"Payment terms", "Payment method", "IBAN", "BIC", "RIB",
	"Due date exists", "Due date", "Lines", "Notes", "Model", "Error",
}

// Row flattens r into one value per ResultColumns entry. Absent values are
// empty strings and amounts are float64 so spreadsheets treat them as numbers.
func (r ProcessingResult) Row() []any {
	row := make([]any, 0, len(ResultColumns))
	row = append(row, r.Filename, r.Status)

	rec := r.Record
	if rec == nil {
		rec = &InvoiceRecord{}
	}
	row = append(row,
		str(rec.InvoiceNumber),
		date(rec.InvoiceDate),
		str(rec.SupplierName),
		str(rec.SupplierTaxID),
		str(rec.BuyerName),
		str(rec.BuyerTaxID),
		str(rec.Currency),
		amount(rec.AmountHT),
		amount(rec.AmountTVA),
		amount(rec.AmountTTC),
		str(rec.PaymentTerms),
		method(rec.PaymentMethod),
		str(rec.IBAN),
		str(rec.BIC),
		str(rec.RIB),
		rec.DueDateExists,
		date(rec.DueDate),
		len(rec.Lines),
		str(rec.Notes),
		rec.Model,
	)

	errText := ""
	if r.Err != nil {
		errText = strings.TrimSpace(r.Err.Error())
	}
	return append(row, errText)
}

func str(s *string) any {
	if s == nil {
		return ""
	}
	return *s
}

func date(d *Date) any {
	if d == nil {
		return ""
	}
	return d.String()
}

func amount(a *Amount) any {
	if a == nil {
		return ""
	}
	return a.InexactFloat64()
}

func method(m *PaymentMethod) any {
	if m == nil {
		return ""
	}
	return string(*m)
}
