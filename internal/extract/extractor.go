// Package extract turns invoice files into raw field maps using a
// document-understanding engine, then hands them to the normalization core.
//
// Two engines are available:
//   - OpenAI chat completion in JSON mode. JPEG, PNG and WEBP images are sent
//     inline; PDFs, TIFFs and BMPs are first read with Google Cloud Vision OCR
//     and sent as text.
//   - Google Document AI's invoice parser, whose entities are mapped onto the
//     same field names.
//
// Supported inputs: .pdf .jpg .jpeg .png .bmp .tiff .webp, up to 20MB.
package extract

import (
	"context"
	"time"

	"factures/internal/logger"
	"factures/internal/normalize"
	"factures/pkg/models"
)

// Engine names accepted by the CLI and EXTRACT_ENGINE.
const (
	EngineOpenAI     = "openai"
	EngineDocumentAI = "documentai"
)

// Extractor turns one document into a raw field map.
type Extractor interface {
	Extract(ctx context.Context, doc *Document) (*Result, error)

	// Model names the model or processor recorded on every record.
	Model() string
}

// Result is the raw output of one extraction.
type Result struct {
	Fields   normalize.RawFieldMap
	RawText  string // model answer before decoding, empty for Document AI
	Model    string
	Duration time.Duration
}

// ProcessFile loads path, extracts it with ex and normalizes the result.
// The record's source_path is the absolute path of the file. Progress is
// logged to the logger carried by ctx, if any.
func ProcessFile(ctx context.Context, ex Extractor, n *normalize.Normalizer, path string) (*models.InvoiceRecord, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx)
	res, err := ex.Extract(ctx, doc)
	if err != nil {
		return nil, WrapExtractionError("ProcessFile", doc.Path, err, "")
	}

	model := res.Model
	if model == "" {
		model = ex.Model()
	}
	log.Debug().
		Str("file", doc.Path).
		Str("model", model).
		Dur("duration", res.Duration).
		Int("fields", len(res.Fields)).
		Msg("Document extracted")
	return n.Normalize(res.Fields, normalize.Meta{SourcePath: doc.Path, Model: model}), nil
}
