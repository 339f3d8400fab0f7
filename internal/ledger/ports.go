// Package ledger defines the storage port for recorded transactions.
package ledger

import (
	"context"
	"errors"

	"costoflife/internal/core"
)

// ErrNotFound is returned when no transaction has the requested fingerprint.
var ErrNotFound = errors.New("transaction not found")

// Store keeps transactions keyed by their fingerprint.
type Store interface {
	// Insert stores tx. existed reports whether a transaction with the same
	// fingerprint was already stored, in which case the store is unchanged.
	Insert(ctx context.Context, tx core.Transaction) (fp core.Fingerprint, existed bool, err error)
	Get(ctx context.Context, fp core.Fingerprint) (core.Transaction, error)
	// List returns every stored transaction ordered by start date, then
	// recording time.
	List(ctx context.Context) ([]core.Transaction, error)
	Delete(ctx context.Context, fp core.Fingerprint) error
}
