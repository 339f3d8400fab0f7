// Package memory is an in-process ledger.Store, optionally backed by a
// journal file.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"costoflife/internal/core"
	"costoflife/internal/journal"
	"costoflife/internal/ledger"
	"costoflife/internal/parser"
)

type Store struct {
	mu    sync.RWMutex
	items map[core.Fingerprint]core.Transaction
}

func New() *Store {
	return &Store{items: make(map[core.Fingerprint]core.Transaction)}
}

// NewFromFile seeds a store from the journal at path. A missing file yields
// an empty store.
func NewFromFile(path string, b parser.Builder) (*Store, error) {
	s := New()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	txs, err := journal.Read(f, b)
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		s.items[tx.Fingerprint()] = tx
	}
	return s, nil
}

// Save writes the whole store to path as a journal, replacing the file.
func (s *Store) Save(path string) error {
	txs, _ := s.List(context.Background())

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".journal-*")
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	if err := journal.Write(tmp, txs); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close journal: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Store) Insert(_ context.Context, tx core.Transaction) (core.Fingerprint, bool, error) {
	if err := tx.Validate(); err != nil {
		return core.Fingerprint{}, false, err
	}
	fp := tx.Fingerprint()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[fp]; ok {
		return fp, true, nil
	}
	s.items[fp] = tx
	return fp, false, nil
}

func (s *Store) Get(_ context.Context, fp core.Fingerprint) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.items[fp]
	if !ok {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return tx, nil
}

func (s *Store) List(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, tx := range s.items {
		out = append(out, tx)
	}
	s.mu.RUnlock()
	ledger.SortTransactions(out)
	return out, nil
}

func (s *Store) Delete(_ context.Context, fp core.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[fp]; !ok {
		return ledger.ErrNotFound
	}
	delete(s.items, fp)
	return nil
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var _ ledger.Store = (*Store)(nil)
