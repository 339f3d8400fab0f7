package sheets

import (
	"context"

	"costoflife/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter exports one evaluated transaction as a spreadsheet
	// row.
	TransactionWriter interface {
		AppendTransaction(ctx context.Context, tx core.Transaction, r core.Result) (rowRef string, err error)
	}

	// ExportLister reports which transactions were already exported, keyed
	// by fingerprint hex.
	ExportLister interface {
		ExportedFingerprints(ctx context.Context) (map[string]bool, error)
	}
)

// Header is the first row of the export sheet.
var Header = []any{"Since", "Last day", "Title", "Amount", "Per diem", "Lifetime", "Tags", "Fingerprint"}

// FingerprintColumn is the zero-based column holding the fingerprint.
const FingerprintColumn = 7

// Row renders the export row of tx evaluated as r.
func Row(tx core.Transaction, r core.Result) []any {
	tags := ""
	for i, t := range tx.Tags {
		if i > 0 {
			tags += " "
		}
		tags += "#" + t
	}
	return []any{
		tx.Since.String(),
		r.LastDay.String(),
		tx.Title,
		core.FormatAmount(tx.Amount),
		core.FormatAmount(r.PerDiem),
		tx.Lifetime.String(),
		tags,
		tx.Fingerprint().String(),
	}
}
