// Package terms infers a due date from free-text payment terms such as
// "Net 30", "30 jours fin de mois" or "payable à réception".
//
// Rules are grouped into families evaluated in a fixed order: instant,
// end of month, then relative offsets. The first matching rule decides the
// outcome. A rule that matches but whose number cannot be read ends the
// inference with no result instead of falling through to later rules.
package terms

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"factures/internal/scalar"
)

// Family groups rules of the same kind.
type Family int

const (
	FamilyInstant Family = iota + 1
	FamilyEndOfMonth
	FamilyRelative
)

func (f Family) String() string {
	switch f {
	case FamilyInstant:
		return "instant"
	case FamilyEndOfMonth:
		return "end_of_month"
	case FamilyRelative:
		return "relative"
	default:
		return "unknown"
	}
}

// Anchor is the date an offset is counted from.
type Anchor int

const (
	AnchorInvoiceDate Anchor = iota
	AnchorEndOfMonth
)

// Unit is the unit of the number captured by a rule's first group.
// UnitNone rules carry no number.
type Unit int

const (
	UnitNone Unit = iota
	UnitDays
	UnitWeeks
)

// Rule is one payment-terms pattern and its interpretation.
type Rule struct {
	Family  Family
	Pattern *regexp.Regexp
	Anchor  Anchor
	Unit    Unit
}

// Rules is matched against folded, lowercased text. Within the end-of-month
// family the "N jours fin de mois" form precedes the bare marker so that the
// offset is not lost.
var Rules = []Rule{
	{FamilyInstant, regexp.MustCompile(`\b(a\s*reception|upon\s*receipt|on\s*receipt|due\s*on\s*receipt)\b`), AnchorInvoiceDate, UnitNone},
	{FamilyInstant, regexp.MustCompile(`\b(comptant|immediat|immediate|immediately)\b`), AnchorInvoiceDate, UnitNone},

	{FamilyEndOfMonth, regexp.MustCompile(`\b(\d{1,3})\s*(?:j|jours?|days?)\s*(?:fin\s*de\s*mois|eom|end\s*of\s*(?:the\s*)?month)\b`), AnchorEndOfMonth, UnitDays},
	{FamilyEndOfMonth, regexp.MustCompile(`\b(?:fin\s*de\s*mois|eom|end\s*of\s*(?:the\s*)?month)\b`), AnchorEndOfMonth, UnitNone},

	{FamilyRelative, regexp.MustCompile(`\bnet[\s\-]*?(\d{1,3})\b`), AnchorInvoiceDate, UnitDays},
	{FamilyRelative, regexp.MustCompile(`\b(\d{1,3})\s*(?:jours?|j|days?|d)\b`), AnchorInvoiceDate, UnitDays},
	{FamilyRelative, regexp.MustCompile(`\b(\d{1,2})\s*(?:semaines?|weeks?|w)\b`), AnchorInvoiceDate, UnitWeeks},
}

// Inference is the outcome of a successful match.
type Inference struct {
	Due    time.Time
	Family Family
	Phrase string // matched text, folded
}

// InferDueDate returns the due date implied by terms for an invoice issued
// on invoiceDate. It returns false when invoiceDate is zero, terms is blank,
// no rule matches, or the matching rule carries an unreadable number.
func InferDueDate(invoiceDate time.Time, terms string) (time.Time, bool) {
	inf, ok := Infer(invoiceDate, terms)
	if !ok {
		return time.Time{}, false
	}
	return inf.Due, true
}

// Infer is InferDueDate with the matching family and phrase.
func Infer(invoiceDate time.Time, terms string) (Inference, bool) {
	return inferWith(Rules, invoiceDate, terms)
}

func inferWith(rules []Rule, invoiceDate time.Time, terms string) (Inference, bool) {
	if invoiceDate.IsZero() || strings.TrimSpace(terms) == "" {
		return Inference{}, false
	}
	inv := time.Date(invoiceDate.Year(), invoiceDate.Month(), invoiceDate.Day(), 0, 0, 0, 0, time.UTC)
	text := scalar.Fold(terms)

	for _, r := range rules {
		m := r.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		due, ok := r.apply(inv, m)
		if !ok {
			return Inference{}, false
		}
		return Inference{Due: due, Family: r.Family, Phrase: m[0]}, true
	}
	return Inference{}, false
}

func (r Rule) apply(inv time.Time, m []string) (time.Time, bool) {
	base := inv
	if r.Anchor == AnchorEndOfMonth {
		base = scalar.EndOfMonth(inv)
	}
	if r.Unit == UnitNone {
		return base, true
	}
	if len(m) < 2 {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	if r.Unit == UnitWeeks {
		n *= 7
	}
	return base.AddDate(0, 0, n), true
}
