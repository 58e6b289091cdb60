package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/type/date"
	"google.golang.org/genproto/googleapis/type/money"

	"factures/internal/normalize"
	"factures/pkg/models"
)

func moneyEntity(typ string, units int64, nanos int32, currency string, conf float32) *documentaipb.Document_Entity {
	return &documentaipb.Document_Entity{
		Type:        typ,
		MentionText: "ignored",
		Confidence:  conf,
		NormalizedValue: &documentaipb.Document_Entity_NormalizedValue{
			StructuredValue: &documentaipb.Document_Entity_NormalizedValue_MoneyValue{
				MoneyValue: &money.Money{CurrencyCode: currency, Units: units, Nanos: nanos},
			},
		},
	}
}

func dateEntity(typ string, y, m, d int32) *documentaipb.Document_Entity {
	return &documentaipb.Document_Entity{
		Type:        typ,
		MentionText: "ignored",
		Confidence:  0.9,
		NormalizedValue: &documentaipb.Document_Entity_NormalizedValue{
			StructuredValue: &documentaipb.Document_Entity_NormalizedValue_DateValue{
				DateValue: &date.Date{Year: y, Month: m, Day: d},
			},
		},
	}
}

func textEntity(typ, text string, conf float32) *documentaipb.Document_Entity {
	return &documentaipb.Document_Entity{Type: typ, MentionText: text, Confidence: conf}
}

func TestEntitiesToFields(t *testing.T) {
	doc := &documentaipb.Document{
		Entities: []*documentaipb.Document_Entity{
			textEntity("invoice_id", " FAC-2024-001 ", 0.95),
			dateEntity("invoice_date", 2024, 1, 10),
			textEntity("supplier_name", "Low confidence SARL", 0.40),
			textEntity("supplier_name", "Société Alpha SARL", 0.92),
			textEntity("receiver_name", "Beta SA", 0.88),
			moneyEntity("net_amount", 1000, 0, "TND", 0.9),
			moneyEntity("total_tax_amount", 190, 0, "TND", 0.9),
			moneyEntity("total_amount", 1190, 500000000, "TND", 0.9),
			textEntity("payment_terms", "30 jours fin de mois", 0.8),
			textEntity("supplier_iban", "TN59 1000 6035 0000 0123 4567", 0.8),
			textEntity("purchase_order", "PO-1", 0.99),
			textEntity("supplier_name", "", 0.99),
			{
				Type: "line_item",
				Properties: []*documentaipb.Document_Entity{
					textEntity("line_item/description", "Prestation", 0.9),
					textEntity("line_item/quantity", "2", 0.9),
					moneyEntity("line_item/unit_price", 500, 0, "TND", 0.9),
					moneyEntity("line_item/amount", 1000, 0, "TND", 0.9),
					textEntity("line_item/product_code", "X1", 0.9),
				},
			},
			{Type: "line_item"},
		},
	}

	fields := entitiesToFields(doc)

	assert.Equal(t, "FAC-2024-001", fields["invoice_number"])
	assert.Equal(t, "2024-01-10", fields["invoice_date"])
	assert.Equal(t, "Société Alpha SARL", fields["supplier_name"], "most confident mention wins")
	assert.Equal(t, "Beta SA", fields["buyer_name"])
	assert.Equal(t, "1000", fields["amount_ht"])
	assert.Equal(t, "190", fields["amount_tva"])
	assert.Equal(t, "1190.5", fields["amount_ttc"])
	assert.Equal(t, "TND", fields["currency"], "money values carry the currency")
	assert.Equal(t, "30 jours fin de mois", fields["payment_terms"])
	assert.Equal(t, "TN59 1000 6035 0000 0123 4567", fields["iban"])
	assert.NotContains(t, fields, "purchase_order")

	lines, ok := fields["lines"].([]any)
	require.True(t, ok)
	require.Len(t, lines, 1, "empty line items are dropped")
	assert.Equal(t, map[string]any{
		"description": "Prestation",
		"qty":         "2",
		"unit_price":  "500",
		"total":       "1000",
	}, lines[0])
}

func TestEntitiesToFields_Normalizes(t *testing.T) {
	doc := &documentaipb.Document{
		Entities: []*documentaipb.Document_Entity{
			textEntity("invoice_id", "F-1", 0.9),
			dateEntity("invoice_date", 2024, 1, 31),
			textEntity("payment_terms", "fin de mois", 0.9),
			textEntity("currency", "€", 0.9),
			moneyEntity("total_amount", 99, 900000000, "", 0.9),
		},
	}

	rec := normalize.Normalize(entitiesToFields(doc), normalize.Meta{Model: "documentai:abc"}, normalize.Options{})
	require.NotNil(t, rec.Currency)
	assert.Equal(t, "EUR", *rec.Currency)
	require.NotNil(t, rec.AmountTTC)
	assert.Equal(t, "99.9", rec.AmountTTC.String())
	require.NotNil(t, rec.DueDate)
	assert.Equal(t, models.NewDate(2024, 1, 31), *rec.DueDate)
	assert.Equal(t, "documentai:abc", rec.Model)
}

func TestEntitiesToFields_Empty(t *testing.T) {
	assert.Empty(t, entitiesToFields(&documentaipb.Document{}))
}

func TestDocumentAIExtractor_ProcessorName(t *testing.T) {
	ex := NewDocumentAIExtractorWithClient(nil, DocumentAIConfig{ProjectID: "p", Location: "eu", ProcessorID: "abc"})
	assert.Equal(t, "projects/p/locations/eu/processors/abc", ex.processorName())
	assert.Equal(t, "documentai:abc", ex.Model())

	ex.config.ProcessorVersion = "pretrained-invoice-v2.0"
	assert.Equal(t, "projects/p/locations/eu/processors/abc/processorVersions/pretrained-invoice-v2.0", ex.processorName())
}

func TestDocumentAIExtractor_HandleProcessingError(t *testing.T) {
	ex := NewDocumentAIExtractorWithClient(nil, DocumentAIConfig{ProcessorID: "abc"})

	tests := []struct {
		err  error
		want error
	}{
		{errors.New("rpc error: code = PermissionDenied desc = PERMISSION_DENIED"), ErrInvalidCredentials},
		{errors.New("rpc error: code = ResourceExhausted desc = quota"), ErrQuotaExceeded},
		{errors.New("rpc error: code = NotFound desc = processor"), ErrProcessorNotFound},
		{errors.New("rpc error: code = InvalidArgument desc = bad"), ErrUnsupportedFormat},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), context.DeadlineExceeded},
		{errors.New("rpc error: code = Internal"), ErrProcessingFailed},
	}
	for _, tc := range tests {
		err := ex.handleProcessingError("op", "/in/a.pdf", tc.err)
		assert.ErrorIs(t, err, tc.want, tc.err.Error())
	}
}

func TestDocumentAIExtractor_NoClient(t *testing.T) {
	ex := NewDocumentAIExtractorWithClient(nil, DocumentAIConfig{ProcessorID: "abc"})
	_, err := ex.Extract(context.Background(), &Document{Path: "/in/a.pdf"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNewDocumentAIExtractor_Validation(t *testing.T) {
	_, err := NewDocumentAIExtractor(context.Background(), DocumentAIConfig{ProcessorID: "abc"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewDocumentAIExtractor(context.Background(), DocumentAIConfig{ProjectID: "p"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
