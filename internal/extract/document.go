package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"factures/internal/ocr"
)

// MaxDocumentSizeBytes is the largest file sent to an extraction engine (20MB).
const MaxDocumentSizeBytes = 20 * 1024 * 1024

// supportedTypes maps lowercase file extensions to mime types.
var supportedTypes = map[string]string{
	".pdf":  ocr.MimePDF,
	".jpg":  ocr.MimeJPEG,
	".jpeg": ocr.MimeJPEG,
	".png":  ocr.MimePNG,
	".bmp":  ocr.MimeBMP,
	".tiff": ocr.MimeTIFF,
	".webp": ocr.MimeWEBP,
}

// SupportedExtensions returns the accepted file extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedTypes))
	for ext := range supportedTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// MimeTypeFor returns the mime type for path's extension.
func MimeTypeFor(path string) (string, bool) {
	mt, ok := supportedTypes[strings.ToLower(filepath.Ext(path))]
	return mt, ok
}

// IsSupported reports whether path has a supported extension.
func IsSupported(path string) bool {
	_, ok := MimeTypeFor(path)
	return ok
}

// Document is one file loaded for extraction.
type Document struct {
	// Path is the absolute path of the file.
	Path     string
	Data     []byte
	MimeType string
}

// LoadDocument reads path after checking its extension and size.
func LoadDocument(path string) (*Document, error) {
	const op = "LoadDocument"

	mimeType, ok := MimeTypeFor(path)
	if !ok {
		return nil, WrapExtractionError(op, path, ErrUnsupportedFormat,
			fmt.Sprintf("extension %q, expected one of %s", filepath.Ext(path), strings.Join(SupportedExtensions(), " ")))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, WrapExtractionError(op, path, err, "failed to resolve path")
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, WrapExtractionError(op, abs, err, "")
	}
	if !info.Mode().IsRegular() {
		return nil, WrapExtractionError(op, abs, ErrUnsupportedFormat, "not a regular file")
	}
	if info.Size() == 0 {
		return nil, WrapExtractionError(op, abs, ErrEmptyDocument, "")
	}
	if info.Size() > MaxDocumentSizeBytes {
		return nil, WrapExtractionError(op, abs, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", info.Size()))
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, WrapExtractionError(op, abs, err, "failed to read file")
	}

	return &Document{Path: abs, Data: data, MimeType: mimeType}, nil
}
