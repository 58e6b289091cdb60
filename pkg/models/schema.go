package models

// RecordFields lists the serialized InvoiceRecord keys in interchange order.
var RecordFields = []string{
	"invoice_number", "invoice_date", "supplier_name", "supplier_tax_id",
	"currency", "amount_ht", "amount_tva", "amount_ttc",
	"payment_terms", "payment_method", "iban", "bic", "rib",
	"due_date_exists", "due_date", "buyer_name", "buyer_tax_id",
	"lines", "notes", "source_path", "model",
}

// RecordSchema returns the JSON Schema every serialized InvoiceRecord satisfies.
func RecordSchema() map[string]any {
	nullableString := map[string]any{"type": []any{"string", "null"}}
	nullableNumber := map[string]any{"type": []any{"number", "null"}}
	nullableDate := map[string]any{
		"type":    []any{"string", "null"},
		"pattern": `^\d{4}-\d{2}-\d{2}$`,
	}

	line := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"description", "qty", "unit", "unit_price", "total"},
		"properties": map[string]any{
			"description": nullableString,
			"qty":         nullableNumber,
			"unit":        nullableString,
			"unit_price":  nullableNumber,
			"total":       nullableNumber,
		},
	}

	required := make([]any, 0, len(RecordFields))
	for _, f := range RecordFields {
		required = append(required, f)
	}

	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"additionalProperties": false,
		"required":             required,
		"properties": map[string]any{
			"invoice_number":  nullableString,
			"invoice_date":    nullableDate,
			"supplier_name":   nullableString,
			"supplier_tax_id": nullableString,
			"currency": map[string]any{
				"type":    []any{"string", "null"},
				"pattern": `^[A-Z]{3}$`,
			},
			"amount_ht":     nullableNumber,
			"amount_tva":    nullableNumber,
			"amount_ttc":    nullableNumber,
			"payment_terms": nullableString,
			"payment_method": map[string]any{
				"enum": []any{"cash", "cheque", "virement", "carte", "traite", "mandat", "autre", nil},
			},
			"iban": map[string]any{
				"type":    []any{"string", "null"},
				"pattern": `^[A-Z]{2}[0-9]{2}[A-Z0-9 ]+$`,
			},
			"bic": map[string]any{
				"type":    []any{"string", "null"},
				"pattern": `^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`,
			},
			"rib": map[string]any{
				"type":    []any{"string", "null"},
				"pattern": `^\d{2} \d{3} \d{13} \d{2}$`,
			},
			"due_date_exists": map[string]any{"type": "boolean"},
			"due_date":        nullableDate,
			"buyer_name":      nullableString,
			"buyer_tax_id":    nullableString,
			"lines":           map[string]any{"type": "array", "items": line},
			"notes":           nullableString,
			"source_path":     map[string]any{"type": "string"},
			"model":           map[string]any{"type": "string"},
		},
	}
}
