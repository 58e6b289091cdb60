package normalize

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRawFieldMap(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string // invoice_number of the decoded map
	}{
		{"plain", `{"invoice_number": "F-1"}`, "F-1"},
		{"fenced with language", "```json\n{\"invoice_number\": \"F-2\"}\n```", "F-2"},
		{"fenced without language", "```\n{\"invoice_number\": \"F-3\"}\n```", "F-3"},
		{"surrounding prose", "Voici les données extraites :\n{\"invoice_number\": \"F-4\"}\nBonne journée.", "F-4"},
		{"trailing prose", `{"invoice_number": "F-5"} merci`, "F-5"},
		{"leading whitespace", "\n\t  {\"invoice_number\": \"F-6\"}  ", "F-6"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := DecodeRawFieldMap(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, m["invoice_number"])
		})
	}
}

func TestDecodeRawFieldMap_EmptyObject(t *testing.T) {
	m, err := DecodeRawFieldMap("{}")
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestDecodeRawFieldMap_KeepsNumbersExact(t *testing.T) {
	m, err := DecodeRawFieldMap(`{"amount_ttc": 1190.10, "lines": [{"qty": 3}]}`)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1190.10"), m["amount_ttc"])

	lines, ok := m["lines"].([]any)
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.Equal(t, json.Number("3"), lines[0].(map[string]any)["qty"])
}

func TestDecodeRawFieldMap_ExponentNumbers(t *testing.T) {
	m, err := DecodeRawFieldMap(`{"amount_ttc": 1.5e3, "amount_ht": "1,5E+3", "lines": [{"qty": 2e0}]}`)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1.5e3"), m["amount_ttc"])

	rec := newTestNormalizer(quiet()).Normalize(m, Meta{})
	assertAmount(t, "1500", rec.AmountTTC)
	assertAmount(t, "1500", rec.AmountHT)
	require.Len(t, rec.Lines, 1)
	assertAmount(t, "2", rec.Lines[0].Qty)
}

func TestDecodeRawFieldMap_NotAnObjectNamesKind(t *testing.T) {
	_, err := DecodeRawFieldMap(`[1, 2]`)
	var mErr *MalformedInputError
	require.True(t, errors.As(err, &mErr))
	require.Error(t, mErr.Err)
	assert.Contains(t, mErr.Err.Error(), "array")
}

func TestDecodeRawFieldMap_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reason string
	}{
		{"empty", "", "empty response"},
		{"blank", "  \n ", "empty response"},
		{"empty fence", "```json\n```", "empty response"},
		{"prose only", "Je n'ai trouvé aucune facture.", "no JSON object found"},
		{"array", `[{"invoice_number": "F-1"}]`, "not a JSON object"},
		{"null", "null", "not a JSON object"},
		{"string", `"facture"`, "not a JSON object"},
		{"number", "42", "not a JSON object"},
		{"boolean", "true", "not a JSON object"},
		{"broken object", `{"invoice_number": "F-1",}`, "invalid JSON"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := DecodeRawFieldMap(tc.text)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, ErrMalformedInput))

			var mErr *MalformedInputError
			require.True(t, errors.As(err, &mErr))
			assert.Equal(t, tc.reason, mErr.Reason)
		})
	}
}

func TestDecodeRawFieldMapFrom(t *testing.T) {
	m, err := DecodeRawFieldMapFrom(strings.NewReader(`{"currency": "EUR"}`))
	require.NoError(t, err)
	assert.Equal(t, "EUR", m["currency"])
}

func TestMalformedInputError_SnippetIsTruncated(t *testing.T) {
	err := malformed("invalid JSON", nil, strings.Repeat("é", 200))
	assert.Len(t, []rune(err.Snippet), snippetLen+3)
	assert.Contains(t, err.Error(), "malformed input: invalid JSON")
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```{\"a\":1}```"))
	assert.Equal(t, "", stripCodeFences("```"))
}
