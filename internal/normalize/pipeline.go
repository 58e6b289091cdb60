// Package normalize turns the loosely-typed field map returned by document
// extraction into a models.InvoiceRecord.
//
// Field-level normalization is total: every field independently degrades to
// null on invalid input and nothing in Normalize returns an error. The only
// fatal condition is text that cannot be read as a field map at all, which
// DecodeRawFieldMap reports as a *MalformedInputError.
package normalize

import (
	"github.com/rs/zerolog"

	"factures/internal/banking"
	"factures/internal/logger"
	"factures/internal/payment"
	"factures/internal/terms"
	"factures/pkg/models"
)

// ribTextFields are scanned in order for a RIB when neither the rib field
// nor a Tunisian IBAN yields one.
var ribTextFields = []string{"notes", "payment_terms", "supplier_name", "buyer_name"}

// Normalizer runs the normalization pipeline with fixed options.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	opts Options
	log  zerolog.Logger
}

// New returns a Normalizer that logs decisions at debug level under the
// "normalize" component.
func New(opts Options) *Normalizer {
	return &Normalizer{
		opts: opts,
		log:  logger.WithComponent("normalize"),
	}
}

// WithLogger returns a copy of n that logs to l.
func (n *Normalizer) WithLogger(l zerolog.Logger) *Normalizer {
	cp := *n
	cp.log = l
	return &cp
}

// Options returns the options n was built with.
func (n *Normalizer) Options() Options {
	return n.opts
}

// Normalize is a shorthand for New(opts).Normalize(raw, meta).
func Normalize(raw RawFieldMap, meta Meta, opts Options) *models.InvoiceRecord {
	return New(opts).Normalize(raw, meta)
}

// Normalize builds the record for one document. A nil or empty raw map
// yields a record with every optional field null, no lines and
// due_date_exists false.
func (n *Normalizer) Normalize(raw RawFieldMap, meta Meta) *models.InvoiceRecord {
	if raw == nil {
		raw = RawFieldMap{}
	}
	log := n.log.With().Str("source", meta.SourcePath).Logger()

	rec := &models.InvoiceRecord{
		InvoiceNumber: raw.text("invoice_number"),
		InvoiceDate:   raw.date("invoice_date"),
		SupplierName:  raw.text("supplier_name"),
		SupplierTaxID: raw.text("supplier_tax_id"),
		Currency:      raw.currency(),
		AmountHT:      raw.amount("amount_ht"),
		AmountTVA:     raw.amount("amount_tva"),
		AmountTTC:     raw.amount("amount_ttc"),
		PaymentTerms:  raw.text("payment_terms"),
		BuyerName:     raw.text("buyer_name"),
		BuyerTaxID:    raw.text("buyer_tax_id"),
		Lines:         raw.lines(),
		Notes:         raw.text("notes"),
		SourcePath:    meta.SourcePath,
		Model:         meta.Model,
	}

	if s, ok := raw.rawString("payment_method"); ok {
		if pm, ok := payment.Classify(s); ok {
			rec.PaymentMethod = &pm
		} else {
			log.Debug().Str("payment_method", s).Msg("payment method not recognized")
		}
	}

	n.bankDetails(raw, rec, log)
	n.dueDate(raw, rec, log)

	return rec
}

func (n *Normalizer) bankDetails(raw RawFieldMap, rec *models.InvoiceRecord, log zerolog.Logger) {
	if s, ok := raw.rawString("iban"); ok {
		iban, valid := banking.CleanIBAN(s)
		switch {
		case !valid:
			log.Debug().Msg("iban rejected: bad structure")
		case n.opts.StrictIBAN && !banking.ValidIBANChecksum(iban):
			log.Debug().Str("iban", iban).Msg("iban rejected: checksum mismatch")
		default:
			rec.IBAN = &iban
		}
	}

	if s, ok := raw.rawString("bic"); ok {
		if bic, ok := banking.CleanBIC(s); ok {
			rec.BIC = &bic
		}
	}

	rawRIB, _ := raw.rawString("rib")
	iban := ""
	if rec.IBAN != nil {
		iban = *rec.IBAN
	}
	texts := make([]string, 0, len(ribTextFields))
	for _, k := range ribTextFields {
		if p := raw.text(k); p != nil {
			texts = append(texts, *p)
		}
	}
	if rib, src, ok := banking.ResolveRIB(rawRIB, iban, texts); ok {
		rec.RIB = &rib
		log.Debug().Stringer("rib_source", src).Msg("rib resolved")
	}
}

// dueDate resolves the due date in order: the printed date, the payment
// terms, then the configured default offset.
func (n *Normalizer) dueDate(raw RawFieldMap, rec *models.InvoiceRecord, log zerolog.Logger) {
	rec.DueDate = raw.date("due_date")
	asserted, hasFlag := raw.flag("due_date_exists")
	if !hasFlag {
		asserted = rec.DueDate != nil
	}

	if rec.DueDate != nil {
		rec.DueDateExists = true
		return
	}

	if rec.InvoiceDate != nil && rec.PaymentTerms != nil {
		if inf, ok := terms.Infer(rec.InvoiceDate.Time, *rec.PaymentTerms); ok {
			d := models.DateOf(inf.Due)
			rec.DueDate = &d
			rec.DueDateExists = true
			log.Debug().
				Stringer("family", inf.Family).
				Str("phrase", inf.Phrase).
				Str("due_date", d.String()).
				Msg("due date inferred from payment terms")
			return
		}
	}

	if rec.InvoiceDate != nil && n.opts.DefaultDueDays > 0 {
		d := rec.InvoiceDate.AddDays(n.opts.DefaultDueDays)
		rec.DueDate = &d
		rec.DueDateExists = true
		log.Debug().
			Int("default_due_days", n.opts.DefaultDueDays).
			Str("due_date", d.String()).
			Msg("due date from default offset")
		return
	}

	rec.DueDateExists = asserted && !n.opts.ForceDueDateConsistency
	if rec.DueDateExists {
		log.Debug().Msg("due date asserted by source but not resolved")
	}
}
