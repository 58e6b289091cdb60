package banking

import (
	"regexp"
	"strings"
)

// RIBLength is the number of digits in a Tunisian RIB.
const RIBLength = 20

// RIBSource records which resolution stage produced a RIB.
type RIBSource int

const (
	SourceNone RIBSource = iota
	SourceField
	SourceIBAN
	SourceText
)

func (s RIBSource) String() string {
	switch s {
	case SourceField:
		return "field"
	case SourceIBAN:
		return "iban"
	case SourceText:
		return "text"
	default:
		return "none"
	}
}

var (
	nonDigitRe = regexp.MustCompile(`\D`)
	// exactly twenty digits, optionally split by spaces, hyphens or periods
	ribRunRe = regexp.MustCompile(`\b\d(?:[\s\-.]*\d){19}\b`)
	// "RIB", "R.I.B.", "RIB bancaire" followed by the twenty digits
	ribLabelRe = regexp.MustCompile(`(?i)\bR\.?I\.?B\.?(?:\s*bancaire)?\s*[:\-]?\s*(\d(?:[\s\-.]*\d){19})\b`)
)

// FormatRIB renders twenty digits as "BB BBB CCCCCCCCCCCCC KK":
// bank code, branch code, account number and key.
func FormatRIB(d20 string) string {
	return d20[0:2] + " " + d20[2:5] + " " + d20[5:18] + " " + d20[18:20]
}

func isRIBDigits(d string) bool {
	if len(d) != RIBLength {
		return false
	}
	for i := 0; i < len(d); i++ {
		if d[i] < '0' || d[i] > '9' {
			return false
		}
	}
	return true
}

// CleanRIB keeps only the digits of raw and formats them when exactly
// twenty remain.
func CleanRIB(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	d := nonDigitRe.ReplaceAllString(raw, "")
	if !isRIBDigits(d) {
		return "", false
	}
	return FormatRIB(d), true
}

// RIBFromIBAN derives the RIB from a Tunisian IBAN, whose BBAN is the
// twenty-digit RIB. Any other country yields false.
func RIBFromIBAN(iban string) (string, bool) {
	s := CompactIBAN(iban)
	if !ibanRe.MatchString(s) || !strings.HasPrefix(s, "TN") {
		return "", false
	}
	bban := s[4:]
	if !isRIBDigits(bban) {
		return "", false
	}
	return FormatRIB(bban), true
}

// ScanRIB looks for a RIB in free text. A run introduced by a RIB label
// wins over an unlabelled run; among unlabelled runs the first valid one wins.
func ScanRIB(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	if m := ribLabelRe.FindStringSubmatch(text); m != nil {
		if d := nonDigitRe.ReplaceAllString(m[1], ""); isRIBDigits(d) {
			return FormatRIB(d), true
		}
	}
	for _, run := range ribRunRe.FindAllString(text, -1) {
		if d := nonDigitRe.ReplaceAllString(run, ""); isRIBDigits(d) {
			return FormatRIB(d), true
		}
	}
	return "", false
}

// ResolveRIB runs the resolution stages in order and stops at the first
// success: the raw RIB field, then a Tunisian IBAN, then each text in turn.
func ResolveRIB(raw, iban string, texts []string) (string, RIBSource, bool) {
	if rib, ok := CleanRIB(raw); ok {
		return rib, SourceField, true
	}
	if iban != "" {
		if rib, ok := RIBFromIBAN(iban); ok {
			return rib, SourceIBAN, true
		}
	}
	for _, text := range texts {
		if rib, ok := ScanRIB(text); ok {
			return rib, SourceText, true
		}
	}
	return "", SourceNone, false
}
