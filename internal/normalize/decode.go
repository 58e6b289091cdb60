package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RawFieldMap is the loosely-typed field map produced by document extraction.
// Numbers decoded by DecodeRawFieldMap are json.Number.
type RawFieldMap map[string]any

// DecodeRawFieldMap reads the text returned by an extraction model.
//
// Markdown code fences are stripped first. When the remaining text is not
// valid JSON, the substring between the first '{' and the last '}' is tried.
// Empty text, undecodable text and JSON values other than an object all
// yield a *MalformedInputError.
func DecodeRawFieldMap(text string) (RawFieldMap, error) {
	body := stripCodeFences(text)
	if body == "" {
		return nil, malformed("empty response", nil, text)
	}

	v, err := decodeJSON(body)
	if err != nil {
		l := strings.Index(body, "{")
		r := strings.LastIndex(body, "}")
		if l == -1 || r <= l {
			return nil, malformed("no JSON object found", err, body)
		}
		v, err = decodeJSON(body[l : r+1])
		if err != nil {
			return nil, malformed("invalid JSON", err, body)
		}
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, malformed("not a JSON object", fmt.Errorf("got %s", jsonKind(v)), body)
	}
	return RawFieldMap(m), nil
}

// DecodeRawFieldMapFrom reads all of r and decodes it with DecodeRawFieldMap.
func DecodeRawFieldMapFrom(r io.Reader) (RawFieldMap, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeRawFieldMap(string(b))
}

func decodeJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// stripCodeFences removes a leading ``` line (with or without a language
// tag) and a trailing ``` from s.
func stripCodeFences(s string) string {
	txt := strings.TrimSpace(s)
	if !strings.HasPrefix(txt, "```") {
		return txt
	}
	if nl := strings.IndexByte(txt, '\n'); nl != -1 {
		txt = strings.TrimSpace(txt[nl+1:])
	} else {
		txt = strings.TrimPrefix(txt, "```")
	}
	txt = strings.TrimSuffix(txt, "```")
	return strings.TrimSpace(txt)
}
