package models

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical ISO form used for every date in an InvoiceRecord.
const DateLayout = "2006-01-02"

// InvoiceRecord is the normalized, typed view of one extracted invoice.
// Every pointer field is either nil (serialized as null) or holds a value
// that passed its own validator.
type InvoiceRecord struct {
	// Identification
	InvoiceNumber *string `json:"invoice_number"`
	InvoiceDate   *Date   `json:"invoice_date"`

	// Parties
	SupplierName  *string `json:"supplier_name"`
	SupplierTaxID *string `json:"supplier_tax_id"`

	// Amounts
	Currency  *string `json:"currency"`   // ISO 4217, three uppercase letters
	AmountHT  *Amount `json:"amount_ht"`  // net (hors taxes)
	AmountTVA *Amount `json:"amount_tva"` // VAT
	AmountTTC *Amount `json:"amount_ttc"` // gross (toutes taxes comprises)

	// Payment
	PaymentTerms  *string        `json:"payment_terms"`
	PaymentMethod *PaymentMethod `json:"payment_method"`
	IBAN          *string        `json:"iban"` // groups of four
	BIC           *string        `json:"bic"`
	RIB           *string        `json:"rib"` // BB BBB CCCCCCCCCCCCC KK

	DueDateExists bool  `json:"due_date_exists"`
	DueDate       *Date `json:"due_date"`

	BuyerName  *string `json:"buyer_name"`
	BuyerTaxID *string `json:"buyer_tax_id"`

	Lines []LineItem `json:"lines"`
	Notes *string    `json:"notes"`

	// Provenance
	SourcePath string `json:"source_path"`
	Model      string `json:"model"`
}

// LineItem is one invoice line. No arithmetic consistency is enforced
// between Qty, UnitPrice and Total.
type LineItem struct {
	Description *string `json:"description"`
	Qty         *Amount `json:"qty"`
	Unit        *string `json:"unit"`
	UnitPrice   *Amount `json:"unit_price"`
	Total       *Amount `json:"total"`
}

// PaymentMethod is the closed set of payment categories.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCheque   PaymentMethod = "cheque"
	PaymentVirement PaymentMethod = "virement"
	PaymentCarte    PaymentMethod = "carte"
	PaymentTraite   PaymentMethod = "traite"
	PaymentMandat   PaymentMethod = "mandat"
	PaymentAutre    PaymentMethod = "autre"
)

// Valid reports whether m belongs to the closed set.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCheque, PaymentVirement, PaymentCarte,
		PaymentTraite, PaymentMandat, PaymentAutre:
		return true
	}
	return false
}

// Date is a calendar date without time of day, stored as UTC midnight.
type Date struct {
	time.Time
}

// NewDate returns the date y-m-d. Out-of-range values are normalized
// the way time.Date normalizes them.
func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// String renders d as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. Only YYYY-MM-DD is accepted.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("date must be a string: %s", b)
	}
	t, err := time.Parse(DateLayout, string(b[1:len(b)-1]))
	if err != nil {
		return err
	}
	*d = Date{t}
	return nil
}

// Amount is a decimal quantity serialized as a bare JSON number.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) *Amount {
	return &Amount{d}
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts both quoted and unquoted numbers.
func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}
