package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"factures/internal/scalar"
	"factures/pkg/models"
)

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// common symbols and local abbreviations printed instead of ISO codes
var currencyAliases = map[string]string{
	"€":     "EUR",
	"$":     "USD",
	"US$":   "USD",
	"£":     "GBP",
	"DT":    "TND",
	"D.T.":  "TND",
	"DINAR": "TND",
	"EURO":  "EUR",
	"EUROS": "EUR",
}

// text returns the trimmed string value of key, or nil when it is missing,
// blank, or not a scalar.
func (m RawFieldMap) text(key string) *string {
	var s string
	switch v := m[key].(type) {
	case string:
		s = strings.TrimSpace(v)
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

// rawString returns the untrimmed string value of key.
func (m RawFieldMap) rawString(key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

func (m RawFieldMap) amount(key string) *models.Amount {
	d, ok := scalar.ParseDecimal(m[key])
	if !ok {
		return nil
	}
	return models.NewAmount(d)
}

func (m RawFieldMap) date(key string) *models.Date {
	s, ok := m[key].(string)
	if !ok {
		return nil
	}
	t, ok := scalar.ParseFuzzyDate(s)
	if !ok {
		return nil
	}
	// the fuzzy result goes through the strict gate like any other date
	t, ok = scalar.ParseISODate(t.Format(scalar.ISODateLayout))
	if !ok {
		return nil
	}
	d := models.DateOf(t)
	return &d
}

// flag reads a boolean the way extraction models tend to print it.
// ok is false when the key is missing, null or unreadable.
func (m RawFieldMap) flag(key string) (value, ok bool) {
	switch v := m[key].(type) {
	case bool:
		return v, true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return false, false
		}
		return f != 0, true
	case float64:
		return v != 0, true
	case string:
		switch scalar.Fold(strings.TrimSpace(v)) {
		case "true", "yes", "oui", "vrai", "1":
			return true, true
		case "false", "no", "non", "faux", "0":
			return false, true
		}
	}
	return false, false
}

func (m RawFieldMap) currency() *string {
	s, ok := m["currency"].(string)
	if !ok {
		return nil
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if alias, ok := currencyAliases[s]; ok {
		s = alias
	}
	if !currencyRe.MatchString(s) {
		return nil
	}
	return &s
}

// lines maps every object in the raw "lines" sequence to a LineItem; other
// elements are skipped. Elements may be decoded JSON objects or RawFieldMap
// values built by a Go caller. The result is never nil.
func (m RawFieldMap) lines() []models.LineItem {
	out := []models.LineItem{}
	for _, li := range lineMaps(m["lines"]) {
		out = append(out, models.LineItem{
			Description: li.text("description"),
			Qty:         li.amount("qty"),
			Unit:        li.text("unit"),
			UnitPrice:   li.amount("unit_price"),
			Total:       li.amount("total"),
		})
	}
	return out
}

func lineMaps(v any) []RawFieldMap {
	var out []RawFieldMap
	switch raw := v.(type) {
	case []any:
		for _, el := range raw {
			switch obj := el.(type) {
			case map[string]any:
				out = append(out, RawFieldMap(obj))
			case RawFieldMap:
				out = append(out, obj)
			}
		}
	case []map[string]any:
		for _, obj := range raw {
			out = append(out, RawFieldMap(obj))
		}
	case []RawFieldMap:
		out = append(out, raw...)
	}
	return out
}
