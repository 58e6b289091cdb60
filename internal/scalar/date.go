package scalar

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// 2024-03-05, 2024/03/05, 2024.03.05, optionally followed by a time
	yearFirstRe = regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})(?:[^0-9]|$)`)
	// 05/03/2024, 5.3.24, 05-03-2024, 05 03 2024
	numericRe = regexp.MustCompile(`\b(\d{1,2})[-/.\s](\d{1,2})[-/.\s](\d{4}|\d{2})\b`)
	// 5 mars 2024, 1er janvier 2024, 3rd March, 2024
	dayMonthYearRe = regexp.MustCompile(`\b(\d{1,2})(?:er|st|nd|rd|th)?\.?\s+([a-z]+)\.?,?\s+(\d{4})\b`)
	// March 3, 2024
	monthDayYearRe = regexp.MustCompile(`\b([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
)

// months maps folded French, English and German month names and
// abbreviations to their number.
var months = map[string]time.Month{
	"janvier": 1, "janv": 1, "jan": 1, "january": 1, "januar": 1,
	"fevrier": 2, "fevr": 2, "fev": 2, "feb": 2, "february": 2, "februar": 2,
	"mars": 3, "mar": 3, "march": 3, "marz": 3,
	"avril": 4, "avr": 4, "apr": 4, "april": 4,
	"mai": 5, "may": 5,
	"juin": 6, "jun": 6, "june": 6, "juni": 6,
	"juillet": 7, "juil": 7, "jul": 7, "july": 7, "juli": 7,
	"aout": 8, "aug": 8, "august": 8,
	"septembre": 9, "sept": 9, "sep": 9, "september": 9,
	"octobre": 10, "oct": 10, "october": 10, "oktober": 10, "okt": 10,
	"novembre": 11, "nov": 11, "november": 11,
	"decembre": 12, "dec": 12, "december": 12, "dezember": 12, "dez": 12,
}

// ParseFuzzyDate finds a calendar date inside s and returns it at UTC
// midnight. Surrounding text is ignored. Ambiguous numeric dates are read
// day first; when that reading is impossible (05/25/2024) the month-first
// reading is tried. Two-digit years pivot at 69 (69 -> 1969, 68 -> 2068).
func ParseFuzzyDate(s string) (time.Time, bool) {
	s = Fold(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}

	for _, m := range yearFirstRe.FindAllStringSubmatch(s, -1) {
		if t, ok := buildDate(m[1], m[2], m[3]); ok {
			return t, true
		}
	}

	for _, m := range numericRe.FindAllStringSubmatch(s, -1) {
		if t, ok := buildDate(m[3], m[2], m[1]); ok {
			return t, true
		}
		if t, ok := buildDate(m[3], m[1], m[2]); ok {
			return t, true
		}
	}

	for _, m := range dayMonthYearRe.FindAllStringSubmatch(s, -1) {
		if month, ok := months[m[2]]; ok {
			if t, ok := buildDate(m[3], strconv.Itoa(int(month)), m[1]); ok {
				return t, true
			}
		}
	}

	for _, m := range monthDayYearRe.FindAllStringSubmatch(s, -1) {
		if month, ok := months[m[1]]; ok {
			if t, ok := buildDate(m[3], strconv.Itoa(int(month)), m[2]); ok {
				return t, true
			}
		}
	}

	return time.Time{}, false
}

// buildDate validates the components and rejects dates that time.Date
// would silently normalize (31 February and the like).
func buildDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	if len(year) == 2 {
		if y >= 69 {
			y += 1900
		} else {
			y += 2000
		}
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
