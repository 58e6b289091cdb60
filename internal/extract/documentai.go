package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"factures/internal/logger"
	"factures/internal/normalize"
)

// DocumentAIConfig identifies the Document AI invoice processor.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string // "us" or "eu"
	ProcessorID      string
	ProcessorVersion string // optional
	Timeout          time.Duration
}

// entity type to field key; the invoice parser reports several aliases
var entityFields = map[string]string{
	"invoice_id":       "invoice_number",
	"invoice_number":   "invoice_number",
	"invoice_date":     "invoice_date",
	"due_date":         "due_date",
	"supplier_name":    "supplier_name",
	"vendor_name":      "supplier_name",
	"supplier_tax_id":  "supplier_tax_id",
	"receiver_name":    "buyer_name",
	"customer_name":    "buyer_name",
	"receiver_tax_id":  "buyer_tax_id",
	"net_amount":       "amount_ht",
	"total_tax_amount": "amount_tva",
	"vat_amount":       "amount_tva",
	"total_amount":     "amount_ttc",
	"currency":         "currency",
	"payment_terms":    "payment_terms",
	"supplier_iban":    "iban",
	"supplier_bic":     "bic",
}

var lineItemFields = map[string]string{
	"line_item/description": "description",
	"line_item/quantity":    "qty",
	"line_item/unit":        "unit",
	"line_item/unit_price":  "unit_price",
	"line_item/amount":      "total",
}

// DocumentAIExtractor implements Extractor with the Document AI invoice parser.
type DocumentAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIExtractor creates a client on the processor's regional
// endpoint. opts usually carry credentials.
func NewDocumentAIExtractor(ctx context.Context, config DocumentAIConfig, opts ...option.ClientOption) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	if config.ProjectID == "" {
		return nil, WrapExtractionError(op, "", ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapExtractionError(op, "", ErrInvalidConfiguration, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, WrapExtractionError(op, "", err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}
	return NewDocumentAIExtractorWithClient(client, config), nil
}

// NewDocumentAIExtractorWithClient creates the engine with an explicit client.
func NewDocumentAIExtractorWithClient(client *documentai.DocumentProcessorClient, config DocumentAIConfig) *DocumentAIExtractor {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("extract-documentai"),
	}
}

// Model returns "documentai:" followed by the processor id.
func (e *DocumentAIExtractor) Model() string {
	return "documentai:" + e.config.ProcessorID
}

// Extract sends doc to the processor and maps its entities to field keys.
func (e *DocumentAIExtractor) Extract(ctx context.Context, doc *Document) (*Result, error) {
	const op = "DocumentAIExtractor.Extract"
	start := time.Now()

	if e.client == nil {
		return nil, WrapExtractionError(op, doc.Path, ErrInvalidConfiguration, "Document AI client is not initialized")
	}

	processCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	resp, err := e.client.ProcessDocument(processCtx, &documentaipb.ProcessRequest{
		Name: e.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  doc.Data,
				MimeType: doc.MimeType,
			},
		},
	})
	if err != nil {
		return nil, e.handleProcessingError(op, doc.Path, err)
	}
	if resp.GetDocument() == nil {
		return nil, WrapExtractionError(op, doc.Path, ErrProcessingFailed, "no document in response")
	}

	fields := entitiesToFields(resp.GetDocument())
	e.log.Debug().
		Str("file", doc.Path).
		Int("entities", len(resp.GetDocument().GetEntities())).
		Int("fields", len(fields)).
		Msg("Document AI extraction completed")

	return &Result{
		Fields:   fields,
		Model:    e.Model(),
		Duration: time.Since(start),
	}, nil
}

func (e *DocumentAIExtractor) processorName() string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		e.config.ProjectID, e.config.Location, e.config.ProcessorID)
	if e.config.ProcessorVersion != "" {
		name += "/processorVersions/" + e.config.ProcessorVersion
	}
	return name
}

// handleProcessingError maps Document AI failures onto the package sentinels.
func (e *DocumentAIExtractor) handleProcessingError(op, path string, err error) error {
	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(errStr, "DeadlineExceeded"):
		return WrapExtractionError(op, path, context.DeadlineExceeded, "processing timeout")
	case errors.Is(err, context.Canceled) || strings.Contains(errStr, "Canceled"):
		return WrapExtractionError(op, path, context.Canceled, "processing was canceled")
	case strings.Contains(errStr, "PERMISSION_DENIED") || strings.Contains(errStr, "PermissionDenied"):
		return WrapExtractionError(op, path, ErrInvalidCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "ResourceExhausted"):
		return WrapExtractionError(op, path, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NOT_FOUND") || strings.Contains(errStr, "NotFound"):
		return WrapExtractionError(op, path, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", e.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT") || strings.Contains(errStr, "InvalidArgument"):
		return WrapExtractionError(op, path, ErrUnsupportedFormat, "document format not supported or corrupted")
	default:
		return WrapExtractionError(op, path, ErrProcessingFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (e *DocumentAIExtractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// entitiesToFields maps processor entities onto a raw field map. When an
// entity type occurs more than once the most confident mention wins.
func entitiesToFields(doc *documentaipb.Document) normalize.RawFieldMap {
	fields := normalize.RawFieldMap{}
	confidence := map[string]float32{}
	var lines []any

	for _, entity := range doc.GetEntities() {
		if entity.GetType() == "line_item" {
			if line := lineItem(entity); len(line) > 0 {
				lines = append(lines, line)
			}
			continue
		}

		key, ok := entityFields[entity.GetType()]
		if !ok {
			continue
		}
		value, currency := entityValue(entity)
		if value == "" {
			continue
		}
		if prev, seen := confidence[key]; seen && prev >= entity.GetConfidence() {
			continue
		}
		fields[key] = value
		confidence[key] = entity.GetConfidence()

		// money values carry their own currency code
		if currency != "" {
			if _, seen := confidence["currency"]; !seen {
				fields["currency"] = currency
			}
		}
	}

	if len(lines) > 0 {
		fields["lines"] = lines
	}
	return fields
}

func lineItem(entity *documentaipb.Document_Entity) map[string]any {
	line := map[string]any{}
	for _, prop := range entity.GetProperties() {
		key, ok := lineItemFields[prop.GetType()]
		if !ok {
			continue
		}
		if value, _ := entityValue(prop); value != "" {
			line[key] = value
		}
	}
	return line
}

// entityValue prefers the normalized value over the mention text. Dates come
// back as YYYY-MM-DD and money as a decimal string plus its currency code.
func entityValue(entity *documentaipb.Document_Entity) (value, currency string) {
	if nv := entity.GetNormalizedValue(); nv != nil {
		if d := nv.GetDateValue(); d != nil && d.GetYear() > 0 {
			return fmt.Sprintf("%04d-%02d-%02d", d.GetYear(), d.GetMonth(), d.GetDay()), ""
		}
		if m := nv.GetMoneyValue(); m != nil {
			amount := decimal.New(m.GetUnits(), 0).Add(decimal.New(int64(m.GetNanos()), -9))
			return amount.String(), m.GetCurrencyCode()
		}
		if s := strings.TrimSpace(nv.GetText()); s != "" {
			return s, ""
		}
	}
	return strings.TrimSpace(entity.GetMentionText()), ""
}
