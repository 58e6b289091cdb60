package normalize

// Options configures the normalization pipeline. The zero value reproduces
// the permissive defaults: structural IBAN check only, no due-day fallback,
// and the source's due_date_exists flag kept when no date resolves.
type Options struct {
	// DefaultDueDays is added to the invoice date when neither an explicit
	// due date nor the payment terms yield one. Values <= 0 disable it.
	DefaultDueDays int

	// StrictIBAN additionally requires a valid ISO 13616 MOD-97 checksum.
	StrictIBAN bool

	// ForceDueDateConsistency sets due_date_exists to false whenever no due
	// date could be resolved, even if the source asserted one.
	ForceDueDateConsistency bool
}

// Meta is provenance copied onto every record.
type Meta struct {
	SourcePath string
	Model      string
}
