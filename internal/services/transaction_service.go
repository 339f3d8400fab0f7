package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"costoflife/internal/core"
	"costoflife/internal/journal"
	"costoflife/internal/ledger"
	"costoflife/internal/log"
	"costoflife/internal/parser"
)

// Publisher announces newly recorded transactions to the sync pipeline.
type Publisher interface {
	PublishTransactionRecorded(ctx context.Context, fp core.Fingerprint) error
}

// Recorded is the outcome of storing one transaction.
type Recorded struct {
	Fingerprint core.Fingerprint `json:"fingerprint"`
	Transaction core.Transaction `json:"transaction"`
	Existed     bool             `json:"existed"`
}

// ImportResult counts the records of an import.
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// TransactionService orchestrates transaction writes across the store and AMQP
type TransactionService struct {
	store     ledger.Store
	publisher Publisher
	builder   parser.Builder
	logger    *log.Logger
	events    *log.StructuredLogger
	flush     func() error
	closers   []io.Closer
}

// NewTransactionService wires a service. publisher may be nil, in which
// case no events are published.
func NewTransactionService(store ledger.Store, publisher Publisher, builder parser.Builder, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &TransactionService{
		store:     store,
		publisher: publisher,
		builder:   builder,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

// OnWrite registers fn to run after every successful write, e.g. to persist
// an in-memory store.
func (s *TransactionService) OnWrite(fn func() error) {
	s.flush = fn
}

// CloseWith registers resources released by Close, in order.
func (s *TransactionService) CloseWith(c ...io.Closer) {
	s.closers = append(s.closers, c...)
}

// Parse parses line without storing it.
func (s *TransactionService) Parse(line string) (core.Transaction, error) {
	return s.builder.Parse(line)
}

// Record parses line and stores the resulting transaction.
func (s *TransactionService) Record(ctx context.Context, line string) (Recorded, error) {
	tx, err := s.builder.Parse(line)
	if err != nil {
		return Recorded{}, fmt.Errorf("parse transaction: %w", err)
	}
	return s.RecordTransaction(ctx, tx)
}

// RecordTransaction stores tx. A transaction already present is reported as
// existing and not published again.
func (s *TransactionService) RecordTransaction(ctx context.Context, tx core.Transaction) (Recorded, error) {
	if err := tx.Validate(); err != nil {
		return Recorded{}, fmt.Errorf("validate transaction: %w", err)
	}
	fp, existed, err := s.store.Insert(ctx, tx)
	if err != nil {
		return Recorded{}, fmt.Errorf("save transaction: %w", err)
	}
	s.events.LogTransactionRecorded(ctx, tx, existed)
	if existed {
		return Recorded{Fingerprint: fp, Transaction: tx, Existed: true}, nil
	}

	if err := s.afterWrite(); err != nil {
		return Recorded{}, err
	}

	if err := s.publish(ctx, fp); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction recorded message",
			log.FieldFingerprint, fp.String(), log.FieldError, err)
		// The transaction is stored; the worker's pending sweep picks it up.
	}
	return Recorded{Fingerprint: fp, Transaction: tx}, nil
}

func (s *TransactionService) publish(ctx context.Context, fp core.Fingerprint) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping recorded message")
		return nil
	}
	return s.publisher.PublishTransactionRecorded(ctx, fp)
}

func (s *TransactionService) afterWrite() error {
	if s.flush == nil {
		return nil
	}
	if err := s.flush(); err != nil {
		return fmt.Errorf("persist store: %w", err)
	}
	return nil
}

// Get returns the transaction with fingerprint fp.
func (s *TransactionService) Get(ctx context.Context, fp core.Fingerprint) (core.Transaction, error) {
	tx, err := s.store.Get(ctx, fp)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", fp.Short(), err)
	}
	return tx, nil
}

// List returns every stored transaction.
func (s *TransactionService) List(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Delete removes the transaction with fingerprint fp.
func (s *TransactionService) Delete(ctx context.Context, fp core.Fingerprint) error {
	if err := s.store.Delete(ctx, fp); err != nil {
		return fmt.Errorf("delete transaction %s: %w", fp.Short(), err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldFingerprint, fp.String(), log.FieldOperation, log.OpDelete)
	return s.afterWrite()
}

// Import records every journal record of r. Records already stored are
// skipped. The first malformed record aborts the import before anything is
// stored.
func (s *TransactionService) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	txs, err := journal.Read(r, s.builder)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import: %w", err)
	}
	var res ImportResult
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := s.RecordTransaction(ctx, tx)
		if err != nil {
			return res, fmt.Errorf("import %q: %w", tx.Title, err)
		}
		if rec.Existed {
			res.Skipped++
		} else {
			res.Added++
		}
	}
	s.logger.InfoContext(ctx, "Journal imported",
		log.FieldOperation, log.OpImport, "added", res.Added, "skipped", res.Skipped)
	return res, nil
}

// Export writes every stored transaction to w in journal form.
func (s *TransactionService) Export(ctx context.Context, w io.Writer) (int, error) {
	txs, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if err := journal.Write(w, txs); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	return len(txs), nil
}

// Close releases the registered resources.
func (s *TransactionService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}
	return nil
}
