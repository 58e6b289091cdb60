// Package payment classifies free-text payment instructions into the closed
// set of payment methods.
package payment

import (
	"regexp"
	"strings"

	"factures/internal/scalar"
	"factures/pkg/models"
)

// Rule maps a keyword pattern to a payment method.
type Rule struct {
	Method  models.PaymentMethod
	Pattern *regexp.Regexp
}

// Rules is evaluated in order against folded text; the first match wins.
// "Virement ou CB" is a transfer because virement is listed before carte.
var Rules = []Rule{
	{models.PaymentCash, regexp.MustCompile(`\b(cash|especes|liquide)\b`)},
	{models.PaymentCheque, regexp.MustCompile(`\b(cheque|check)\b`)},
	{models.PaymentVirement, regexp.MustCompile(`\b(virement|transfer|transfert|wire|sepa)\b`)},
	{models.PaymentCarte, regexp.MustCompile(`\b(carte|cb|visa|mastercard|credit\s*card|debit\s*card)\b`)},
	{models.PaymentTraite, regexp.MustCompile(`\b(traite|lettre\s*de\s*change)\b`)},
	{models.PaymentMandat, regexp.MustCompile(`\b(mandat|money\s*order)\b`)},
	{models.PaymentAutre, regexp.MustCompile(`\b(paypal|wallet|crypto|bitcoin|stripe)\b`)},
}

// Classify returns the payment method named in text, or false when no rule
// matches. It never guesses a default.
func Classify(text string) (models.PaymentMethod, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	folded := scalar.Fold(text)
	for _, r := range Rules {
		if r.Pattern.MatchString(folded) {
			return r.Method, true
		}
	}
	return "", false
}
