package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"costoflife/internal/amqp"
	"costoflife/internal/core"
	"costoflife/internal/ledger"
	"costoflife/internal/log"
	"costoflife/internal/sheets"
	"costoflife/internal/storage"
)

// SyncStore is the part of the SQLite repository the worker needs.
type SyncStore interface {
	Get(ctx context.Context, fp core.Fingerprint) (core.Transaction, error)
	GetPendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	SyncStatus(ctx context.Context, fp core.Fingerprint) (string, error)
	MarkSynced(ctx context.Context, fp core.Fingerprint) error
	MarkSyncError(ctx context.Context, fp core.Fingerprint) error
}

// SyncWorker exports recorded transactions from SQLite to a spreadsheet
type SyncWorker struct {
	store     SyncStore
	sheets    sheets.TransactionWriter
	exported  sheets.ExportLister
	batchSize int
	logger    *log.Logger
	now       func() time.Time
}

// NewSyncWorker builds a worker. exported may be nil; when set, pending
// sweeps skip transactions the sheet already holds.
func NewSyncWorker(store SyncStore, writer sheets.TransactionWriter, exported sheets.ExportLister, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		store:     store,
		sheets:    writer,
		exported:  exported,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// HandleRecorded processes a single transaction recorded message from AMQP
func (w *SyncWorker) HandleRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	fp, err := msg.TransactionFingerprint()
	if err != nil {
		return fmt.Errorf("decode message fingerprint: %w", err)
	}

	w.logger.InfoContext(ctx, "Processing recorded message",
		"message_id", msg.ID, log.FieldFingerprint, fp.Short())

	status, err := w.store.SyncStatus(ctx, fp)
	if errors.Is(err, ledger.ErrNotFound) {
		// Deleted before the worker got to it.
		w.logger.WarnContext(ctx, "Transaction no longer stored, skipping",
			log.FieldFingerprint, fp.Short())
		return nil
	}
	if err != nil {
		return fmt.Errorf("get sync status: %w", err)
	}
	if status == storage.SyncDone {
		w.logger.DebugContext(ctx, "Transaction already synced", log.FieldFingerprint, fp.Short())
		return nil
	}

	tx, err := w.store.Get(ctx, fp)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	return w.syncToSheets(ctx, fp, tx)
}

// ProcessPending exports transactions that haven't been synced yet.
// It backs up the AMQP path in case messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	_, _, err := w.sweep(ctx, w.batchSize)
	return err
}

// StartupSyncCheck exports a larger batch of pending transactions at worker
// startup, to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.sweep(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		log.FieldOperation, log.OpStartup, "synced", synced, "errors", failed)
	return nil
}

func (w *SyncWorker) sweep(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.store.GetPendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending transactions", log.FieldCount, len(pending))

	var already map[string]bool
	if w.exported != nil {
		already, err = w.exported.ExportedFingerprints(ctx)
		if err != nil {
			// Without the list, appending may duplicate rows; try next sweep.
			return 0, 0, fmt.Errorf("list exported transactions: %w", err)
		}
	}

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return synced, failed, err
		}
		if already[p.Fingerprint.String()] {
			if err := w.store.MarkSynced(ctx, p.Fingerprint); err != nil {
				w.logger.ErrorContext(ctx, "Failed to mark as synced",
					log.FieldFingerprint, p.Fingerprint.Short(), log.FieldError, err)
			}
			synced++
			continue
		}

		tx, err := w.store.Get(ctx, p.Fingerprint)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to get transaction",
				log.FieldFingerprint, p.Fingerprint.Short(), log.FieldError, err)
			if err := w.store.MarkSyncError(ctx, p.Fingerprint); err != nil {
				w.logger.ErrorContext(ctx, "Failed to mark sync error",
					log.FieldFingerprint, p.Fingerprint.Short(), log.FieldError, err)
			}
			failed++
			continue
		}
		if err := w.syncToSheets(ctx, p.Fingerprint, tx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync transaction",
				log.FieldFingerprint, p.Fingerprint.Short(), log.FieldError, err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *SyncWorker) syncToSheets(ctx context.Context, fp core.Fingerprint, tx core.Transaction) error {
	// The row shows the per-diem and last day, which are independent of the
	// reference date; evaluate at today for the rest.
	r, err := core.Evaluate(tx, core.Today(w.now()))
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, fp); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error",
				log.FieldFingerprint, fp.Short(), log.FieldError, markErr)
		}
		return fmt.Errorf("evaluate transaction: %w", err)
	}

	ref, err := w.sheets.AppendTransaction(ctx, tx, r)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, fp); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error",
				log.FieldFingerprint, fp.Short(), log.FieldError, markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.store.MarkSynced(ctx, fp); err != nil {
		// The row is written; the next sweep sees it in the sheet.
		w.logger.ErrorContext(ctx, "Failed to mark as synced",
			log.FieldFingerprint, fp.Short(), log.FieldError, err)
	}

	fields := log.NewFields().
		WithTransaction(tx).
		WithOperation(log.OpSync)
	fields[log.FieldSheetsRef] = ref
	w.logger.InfoContext(ctx, "Successfully synced transaction", fields.ToSlice()...)
	return nil
}
