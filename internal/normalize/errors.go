package normalize

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is the only fatal condition of the normalization core:
// the extraction output cannot be read as a field map at all.
var ErrMalformedInput = errors.New("extraction output is not a field map")

// MalformedInputError describes why the extraction output was rejected.
type MalformedInputError struct {
	// Reason is a short description such as "empty response" or "not a JSON object".
	Reason string

	// Err is the underlying decode or schema error, if any.
	Err error

	// Snippet is the beginning of the rejected text.
	Snippet string
}

// Error implements the error interface.
func (e *MalformedInputError) Error() string {
	msg := "normalize: malformed input: " + e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Snippet != "" {
		msg = fmt.Sprintf("%s (got %q)", msg, e.Snippet)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrMalformedInput.
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

const snippetLen = 80

func malformed(reason string, err error, text string) *MalformedInputError {
	r := []rune(text)
	if len(r) > snippetLen {
		text = string(r[:snippetLen]) + "..."
	}
	return &MalformedInputError{Reason: reason, Err: err, Snippet: text}
}
