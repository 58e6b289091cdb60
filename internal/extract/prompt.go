package extract

import "strings"

// promptFields are the keys the model is asked for, with per-key hints.
var promptFields = []struct {
	key, hint string
}{
	{"invoice_number", ""},
	{"invoice_date", "YYYY-MM-DD"},
	{"supplier_name", ""},
	{"supplier_tax_id", "matricule fiscal, VAT number"},
	{"currency", "ISO code, e.g. TND, EUR"},
	{"amount_ht", "total before tax"},
	{"amount_tva", "total tax"},
	{"amount_ttc", "total including tax"},
	{"payment_terms", "verbatim, e.g. \"30 jours fin de mois\""},
	{"payment_method", "as printed"},
	{"iban", ""},
	{"bic", ""},
	{"rib", "Tunisian 20-digit RIB if printed, otherwise null"},
	{"due_date", "only a due date printed on the document"},
	{"due_date_exists", "true only if a due date is printed"},
	{"buyer_name", ""},
	{"buyer_tax_id", ""},
	{"lines", "array of {description, qty, unit, unit_price, total}"},
	{"notes", "any other payment or bank details"},
}

const systemPrompt = `You read invoices (French, English, Arabic or German) and return their fields as a single JSON object. ` +
	`Copy values as printed; do not compute or guess missing values.`

// ExtractionPrompt is the user instruction sent with every document.
var ExtractionPrompt = buildPrompt()

func buildPrompt() string {
	var b strings.Builder
	b.WriteString("Return ONLY a JSON object, with no prose and no code fences.\n")
	b.WriteString("Extract these keys from the document; when a value is unknown use null, never an empty string:\n\n")
	for _, f := range promptFields {
		b.WriteString("- ")
		b.WriteString(f.key)
		if f.hint != "" {
			b.WriteString(" (")
			b.WriteString(f.hint)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// textPrompt appends OCR text to the extraction prompt.
func textPrompt(ocrText string) string {
	return ExtractionPrompt + "\nDocument text (OCR):\n---\n" + ocrText + "\n---\n"
}
