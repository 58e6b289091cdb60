// Package scalar parses the loosely-typed scalars produced by document
// extraction: locale-formatted numbers and dates in many shapes.
//
// Every parser here is total: a value that cannot be interpreted yields
// ok == false, never an error or a panic.
package scalar

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ISODateLayout is the only layout accepted by ParseISODate.
const ISODateLayout = "2006-01-02"

// thousands separators removed before numeric parsing
var numberSpaces = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "")

// a bare literal in exponent form, checked before the character filter
// would drop its exponent marker
var exponentLiteral = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?[eE][+-]?[0-9]+$`)

// ParseDecimal interprets v as a decimal number.
//
// Numbers are taken as-is. Strings lose their space and non-breaking space
// thousands separators, a comma becomes the decimal point, and every
// remaining character other than digits, '.' and '-' is dropped before
// parsing. "1 234,50 TND" therefore yields 1234.50 while "1.234,50" is
// rejected (two decimal points). A string that is nothing but a number in
// exponent form ("1,5E+3") keeps its exponent.
func ParseDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Decimal{}, false
	case decimal.Decimal:
		return x, true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(x), true
	case float32:
		return ParseDecimal(float64(x))
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt32(x), true
	case int64:
		return decimal.NewFromInt(x), true
	case json.Number:
		if d, err := decimal.NewFromString(string(x)); err == nil {
			return d, true
		}
		return parseDecimalString(string(x))
	case string:
		return parseDecimalString(x)
	default:
		return decimal.Decimal{}, false
	}
}

func parseDecimalString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	s = numberSpaces.Replace(s)
	s = strings.ReplaceAll(s, ",", ".")
	if exponentLiteral.MatchString(s) {
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseISODate accepts exactly YYYY-MM-DD and returns the date at UTC midnight.
func ParseISODate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) != len(ISODateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(ISODateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EndOfMonth returns the last calendar day of t's month.
func EndOfMonth(t time.Time) time.Time {
	// day 0 of the next month is the last day of this one
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// Fold lowercases s and strips combining marks, so "Espèces" and
// "especes" compare equal. Letters without a decomposition are kept.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
