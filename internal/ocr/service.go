// Package ocr extracts text from invoice scans with the Google Cloud Vision API.
//
// PDFs and TIFFs go through synchronous file annotation (BatchAnnotateFiles);
// JPEG, PNG, BMP and WEBP images go through image annotation
// (BatchAnnotateImages). Both use DOCUMENT_TEXT_DETECTION.
//
// Cloud Vision API limitations:
//   - Maximum file size: 20MB for synchronous processing
//   - Maximum pages: 5 pages for synchronous file processing
package ocr

import (
	"context"
	"io"
	"time"
)

// OCRService defines the interface for OCR text extraction services.
type OCRService interface {
	// ProcessDocument extracts text from a PDF, TIFF or image.
	ProcessDocument(ctx context.Context, data []byte, mimeType string) (*OCRResult, error)

	// ProcessPDF extracts text from a PDF document.
	// Returns the concatenated text from all pages.
	ProcessPDF(ctx context.Context, pdfData io.Reader) (string, error)
}

// OCRResult contains the results of OCR processing with metadata.
type OCRResult struct {
	// Text is the extracted text content from all pages, concatenated in reading order.
	Text string `json:"text"`

	// PageCount is the number of pages that were processed.
	PageCount int `json:"page_count"`

	// Confidence is the average page confidence (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	// LanguageCodes contains the detected languages in the document, sorted.
	LanguageCodes []string `json:"language_codes,omitempty"`

	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Mime types accepted by ProcessDocument.
const (
	MimePDF  = "application/pdf"
	MimeTIFF = "image/tiff"
	MimeGIF  = "image/gif"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeBMP  = "image/bmp"
	MimeWEBP = "image/webp"
)

// isFileMime reports whether mimeType must go through file annotation.
func isFileMime(mimeType string) bool {
	switch mimeType {
	case MimePDF, MimeTIFF, MimeGIF:
		return true
	}
	return false
}

func isImageMime(mimeType string) bool {
	switch mimeType {
	case MimeJPEG, MimePNG, MimeBMP, MimeWEBP:
		return true
	}
	return false
}
