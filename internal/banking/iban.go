// Package banking validates and formats bank identifiers found on invoices:
// IBAN, BIC and the Tunisian 20-digit RIB.
//
// Validation is structural. An IBAN passes when it has a two-letter country
// code, two check digits and an 11 to 30 character BBAN; the ISO 13616
// MOD-97 checksum is available separately through ValidIBANChecksum for
// callers that want the stricter gate.
package banking

import (
	"math/big"
	"regexp"
	"strings"
)

var (
	ibanRe     = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)
	bicRe      = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
	nonAlnumRe = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// CompactIBAN strips every non-alphanumeric character and uppercases the rest.
func CompactIBAN(raw string) string {
	return strings.ToUpper(nonAlnumRe.ReplaceAllString(raw, ""))
}

// CleanIBAN returns the IBAN in groups of four separated by single spaces,
// or false when raw does not have the IBAN structure.
func CleanIBAN(raw string) (string, bool) {
	s := CompactIBAN(raw)
	if s == "" || !ibanRe.MatchString(s) {
		return "", false
	}
	return groupByFour(s), true
}

// ValidIBANChecksum verifies the ISO 13616 MOD-97 check digits of an IBAN
// in any spacing or case.
func ValidIBANChecksum(iban string) bool {
	s := CompactIBAN(iban)
	if !ibanRe.MatchString(s) {
		return false
	}

	// move country code and check digits to the end, letters become 10..35
	rearranged := s[4:] + s[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			n := int(r-'A') + 10
			digits.WriteByte(byte('0' + n/10))
			digits.WriteByte(byte('0' + n%10))
		}
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

// IBANCountry returns the two-letter country code of a formatted or compact IBAN.
func IBANCountry(iban string) string {
	s := CompactIBAN(iban)
	if len(s) < 2 {
		return ""
	}
	return s[:2]
}

// CleanBIC returns the uppercase BIC (8 or 11 characters) or false when
// raw does not have the BIC structure.
func CleanBIC(raw string) (string, bool) {
	s := strings.ToUpper(nonAlnumRe.ReplaceAllString(raw, ""))
	if s == "" || !bicRe.MatchString(s) {
		return "", false
	}
	return s, true
}

func groupByFour(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[i:end])
	}
	return b.String()
}
