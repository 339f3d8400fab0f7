package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"costoflife/internal/core"
	"costoflife/internal/ledger"
	"costoflife/internal/log"

	_ "modernc.org/sqlite"
)

// Sync states of a stored transaction.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// PendingSync is the minimal data needed to queue a transaction for export.
type PendingSync struct {
	Fingerprint core.Fingerprint
	CreatedAt   time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Debug("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const insertTransaction = `
INSERT INTO transactions (
    fingerprint, title, amount_cents, since,
    lifetime_unit, lifetime_count, lifetime_repeat,
    tags, source, recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (fingerprint) DO NOTHING`

// Insert implements ledger.Store
func (r *SQLiteRepository) Insert(ctx context.Context, tx core.Transaction) (core.Fingerprint, bool, error) {
	if err := tx.Validate(); err != nil {
		return core.Fingerprint{}, false, err
	}
	fp := tx.Fingerprint()
	res, err := r.db.ExecContext(ctx, insertTransaction,
		fp.String(),
		tx.Title,
		core.ToCents(tx.Amount),
		tx.Since.String(),
		string(tx.Lifetime.Unit),
		tx.Lifetime.Count,
		tx.Lifetime.Repeat,
		strings.Join(core.NormalizeTags(tx.Tags), ","),
		tx.Source,
		tx.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fp, false, fmt.Errorf("insert transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fp, false, fmt.Errorf("insert transaction: %w", err)
	}
	if n == 0 {
		return fp, true, nil
	}

	r.logger.InfoContext(ctx, "Transaction saved to SQLite",
		log.FieldFingerprint, fp.Short(),
		log.FieldTitle, tx.Title,
		"amount_cents", core.ToCents(tx.Amount),
		log.FieldSince, tx.Since.String())

	return fp, false, nil
}

const selectColumns = `
SELECT title, amount_cents, since, lifetime_unit, lifetime_count,
       lifetime_repeat, tags, source, recorded_at
FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx                      core.Transaction
		cents                   int64
		since, unit, tags, recd string
	)
	if err := s.Scan(&tx.Title, &cents, &since, &unit, &tx.Lifetime.Count,
		&tx.Lifetime.Repeat, &tags, &tx.Source, &recd); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(since)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode since: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, recd)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode recorded_at: %w", err)
	}
	tx.Amount = core.FromCents(cents)
	tx.Since = d
	tx.Lifetime.Unit = core.TimeUnit(unit)
	tx.RecordedAt = at
	tx.Tags = []string{}
	if tags != "" {
		tx.Tags = strings.Split(tags, ",")
	}
	return tx, nil
}

// Get implements ledger.Store
func (r *SQLiteRepository) Get(ctx context.Context, fp core.Fingerprint) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE fingerprint = ?`, fp.String())
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", fp.Short(), err)
	}
	return tx, nil
}

// List implements ledger.Store
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY since, recorded_at, title`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// Delete implements ledger.Store
func (r *SQLiteRepository) Delete(ctx context.Context, fp core.Fingerprint) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE fingerprint = ?`, fp.String())
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// GetPendingSync returns transactions that still need to be exported,
// oldest first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT fingerprint, created_at FROM transactions
WHERE sync_status = ?
ORDER BY created_at, fingerprint
LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var hex, created string
		if err := rows.Scan(&hex, &created); err != nil {
			return nil, fmt.Errorf("get pending sync transactions: %w", err)
		}
		fp, err := core.ParseFingerprint(hex)
		if err != nil {
			return nil, err
		}
		out = append(out, PendingSync{Fingerprint: fp, CreatedAt: parseTimestamp(created)})
	}
	return out, rows.Err()
}

// MarkSynced marks a transaction as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, fp core.Fingerprint) error {
	if err := r.setSyncStatus(ctx, fp, SyncDone); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	r.logger.InfoContext(ctx, "Transaction marked as synced", log.FieldFingerprint, fp.Short())
	return nil
}

// MarkSyncError marks a transaction whose export failed.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, fp core.Fingerprint) error {
	if err := r.setSyncStatus(ctx, fp, SyncError); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	r.logger.WarnContext(ctx, "Transaction marked with sync error", log.FieldFingerprint, fp.Short())
	return nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, fp core.Fingerprint, status string) error {
	var syncedAt any
	if status == SyncDone {
		syncedAt = time.Now().UTC().Format(time.RFC3339)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ?, synced_at = ? WHERE fingerprint = ?`,
		status, syncedAt, fp.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// SyncStatus returns the export state of a transaction.
func (r *SQLiteRepository) SyncStatus(ctx context.Context, fp core.Fingerprint) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT sync_status FROM transactions WHERE fingerprint = ?`, fp.String()).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ledger.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get sync status: %w", err)
	}
	return status, nil
}

// parseTimestamp reads a created_at value, which the driver may hand back
// either as SQLite's own text form or already formatted as RFC 3339.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

var _ ledger.Store = (*SQLiteRepository)(nil)
