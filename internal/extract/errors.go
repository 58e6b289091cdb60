package extract

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrUnsupportedFormat is returned for files other than PDF and the
	// supported image formats.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrDocumentTooLarge is returned when the file exceeds MaxDocumentSizeBytes.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")

	// ErrEmptyDocument is returned for zero-byte files.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrEmptyResponse is returned when the model answers with no content.
	ErrEmptyResponse = errors.New("extraction model returned no content")

	// ErrMissingAPIKey is returned when the OpenAI engine has no API key.
	ErrMissingAPIKey = errors.New("missing OpenAI API key: set OPENAI_API_KEY")

	// ErrInvalidConfiguration is returned when the Document AI configuration is incomplete.
	ErrInvalidConfiguration = errors.New("invalid Document AI configuration")

	// ErrInvalidCredentials is returned when Google Cloud rejects the credentials.
	ErrInvalidCredentials = errors.New("invalid Google Cloud credentials")

	// ErrProcessorNotFound is returned when the Document AI processor does not exist.
	ErrProcessorNotFound = errors.New("Document AI processor not found")

	// ErrQuotaExceeded is returned when an API quota is exhausted.
	ErrQuotaExceeded = errors.New("API quota exceeded")

	// ErrProcessingFailed is returned when the remote service fails for any other reason.
	ErrProcessingFailed = errors.New("document processing failed")
)

// ExtractionError wraps errors with the operation and file that failed.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "LoadDocument", "OpenAIExtractor.Extract").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string

	// Path is the processed file, if known.
	Path string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	msg := "extract: " + e.Op + " failed"
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %v", msg, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op, path string, err error, details string) error {
	if err == nil {
		return nil
	}

	var exErr *ExtractionError
	if errors.As(err, &exErr) {
		return err
	}

	return &ExtractionError{Op: op, Err: err, Details: details, Path: path}
}
