package ledger

import (
	"sort"

	"costoflife/internal/core"
)

// SortTransactions orders txs by start date, then recording time, then title.
func SortTransactions(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Since.Equal(b.Since) {
			return a.Since.Before(b.Since)
		}
		if !a.RecordedAt.Equal(b.RecordedAt) {
			return a.RecordedAt.Before(b.RecordedAt)
		}
		return a.Title < b.Title
	})
}
