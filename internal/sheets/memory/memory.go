// Package memory is an in-process spreadsheet used when no Google sheet is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"costoflife/internal/core"
	"costoflife/internal/sheets"
)

type Sheet struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Sheet {
	return &Sheet{}
}

// AppendTransaction stores the row and returns a synthetic row reference.
func (s *Sheet) AppendTransaction(_ context.Context, tx core.Transaction, r core.Result) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, sheets.Row(tx, r))
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Sheet) ExportedFingerprints(_ context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.rows))
	for _, row := range s.rows {
		if fp, ok := row[sheets.FingerprintColumn].(string); ok {
			out[fp] = true
		}
	}
	return out, nil
}

// Rows returns a copy of the appended rows.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.rows...)
}

var (
	_ sheets.TransactionWriter = (*Sheet)(nil)
	_ sheets.ExportLister      = (*Sheet)(nil)
)
