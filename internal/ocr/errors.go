package ocr

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is by the CLI to pick a user-facing message.
var (
	// ErrFileTooLarge: Vision rejects inline payloads above MaxFileSizeBytes,
	// whatever the format.
	ErrFileTooLarge = errors.New("file size exceeds the maximum limit (20MB)")

	// ErrCorruptDocument: the bytes do not start with the magic number of the
	// declared PDF or TIFF type.
	ErrCorruptDocument = errors.New("document content does not match its type")

	// ErrUnsupportedMimeType: neither files:annotate nor images:annotate
	// accepts this type.
	ErrUnsupportedMimeType = errors.New("unsupported document mime type")

	// ErrOCRFailed: Vision answered with a per-page error or no page at all.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials: no client option was given and application
	// default credentials could not be found.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrTooManyPages: a multi-page PDF or TIFF is longer than the
	// synchronous files:annotate call reads (MaxPagesSync).
	ErrTooManyPages = errors.New("document has too many pages (maximum 5 pages for synchronous processing)")

	// ErrEmptyDocument: every page came back without text, typically a blank
	// scan or a photo with no printing.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// OCRError records which call failed on a document.
type OCRError struct {
	Op      string // ProcessDocument, NewGoogleVisionOCRService, ...
	Err     error
	Details string // mime type, size or page count when known
}

func (e *OCRError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
}

func (e *OCRError) Unwrap() error { return e.Err }

// WrapOCRError tags err with op. An error that already carries an OCRError
// is returned untouched so the innermost operation is reported.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}
	return &OCRError{Op: op, Err: err, Details: details}
}
