package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"costoflife/internal/cache"
	"costoflife/internal/core"
	"costoflife/internal/ledger"
	"costoflife/internal/log"
)

// DefaultEvalWorkers bounds the evaluation fan-out when none is configured.
const DefaultEvalWorkers = 4

// Report is the headline figure for one day.
type Report struct {
	Date       core.Date       `json:"date"`
	CostOfLife decimal.Decimal `json:"cost_of_life"`
	Active     int             `json:"active"`
	Total      int             `json:"total"`
}

// ReportService derives read-only views over the stored transactions.
type ReportService struct {
	store   ledger.Store
	results *cache.LRUCache[core.Result]
	workers int
	logger  *log.Logger
}

// NewReportService wires a report service. results may be nil to disable
// caching; workers below 1 fall back to DefaultEvalWorkers.
func NewReportService(store ledger.Store, results *cache.LRUCache[core.Result], workers int, logger *log.Logger) *ReportService {
	if workers < 1 {
		workers = DefaultEvalWorkers
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportService{
		store:   store,
		results: results,
		workers: workers,
		logger:  logger.WithComponent(log.ComponentReport),
	}
}

// CacheStats reports the result cache counters; ok is false when caching
// is disabled.
func (s *ReportService) CacheStats() (stats cache.Stats, ok bool) {
	if s.results == nil {
		return cache.Stats{}, false
	}
	return s.results.Stats(), true
}

// Results of a transaction only depend on its content and the reference date.
func resultKey(fp core.Fingerprint, ref core.Date) string {
	return fp.String() + "@" + ref.String()
}

func (s *ReportService) evaluate(fp core.Fingerprint, tx core.Transaction, ref core.Date) (core.Result, error) {
	key := resultKey(fp, ref)
	if s.results != nil {
		if r, ok := s.results.Get(key); ok {
			return r, nil
		}
	}
	r, err := core.Evaluate(tx, ref)
	if err != nil {
		return core.Result{}, fmt.Errorf("evaluate %q: %w", tx.Title, err)
	}
	if s.results != nil {
		s.results.Set(key, r)
	}
	return r, nil
}

// evaluateAll evaluates every stored transaction at ref, in store order.
func (s *ReportService) evaluateAll(ctx context.Context, ref core.Date) ([]core.Evaluation, error) {
	txs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	evals := make([]core.Evaluation, len(txs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, tx := range txs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fp := core.FingerprintOf(tx)
			r, err := s.evaluate(fp, tx, ref)
			if err != nil {
				return err
			}
			evals[i] = core.Evaluation{Fingerprint: fp, Transaction: tx, Result: r}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "Transactions evaluated",
		log.FieldOperation, log.OpEvaluate,
		log.FieldReferenceDate, ref.String(),
		log.FieldCount, len(evals))
	return evals, nil
}

// CostOfLife returns the summed daily cost of the transactions active on ref.
func (s *ReportService) CostOfLife(ctx context.Context, ref core.Date) (decimal.Decimal, error) {
	evals, err := s.evaluateAll(ctx, ref)
	if err != nil {
		return decimal.Zero, err
	}
	return core.CostOfLifeOf(evals, ref), nil
}

// Report returns the cost of life on ref with the count of active
// transactions.
func (s *ReportService) Report(ctx context.Context, ref core.Date) (Report, error) {
	evals, err := s.evaluateAll(ctx, ref)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Date:       ref,
		CostOfLife: core.CostOfLifeOf(evals, ref),
		Active:     len(core.Summarize(evals, ref)),
		Total:      len(evals),
	}, nil
}

// Summary lists the transactions active on ref, most consumed first.
func (s *ReportService) Summary(ctx context.Context, ref core.Date) ([]core.SummaryRow, error) {
	evals, err := s.evaluateAll(ctx, ref)
	if err != nil {
		return nil, err
	}
	return core.Summarize(evals, ref), nil
}

// Tags aggregates the transactions active on ref by tag.
func (s *ReportService) Tags(ctx context.Context, ref core.Date) ([]core.TagRow, error) {
	evals, err := s.evaluateAll(ctx, ref)
	if err != nil {
		return nil, err
	}
	return core.AggregateTags(evals, ref), nil
}

// Search returns the evaluations at ref of the transactions whose title or
// tags contain every word of pattern.
func (s *ReportService) Search(ctx context.Context, pattern string, ref core.Date) ([]core.Evaluation, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	evals, err := s.evaluateAll(ctx, ref)
	if err != nil {
		return nil, err
	}
	var out []core.Evaluation
	for _, e := range evals {
		if core.Matches(e.Transaction, pattern) {
			out = append(out, e)
		}
	}
	s.logger.DebugContext(ctx, "Search completed",
		log.FieldOperation, log.OpSearch, "pattern", pattern, log.FieldCount, len(out))
	return out, nil
}

// Evaluate returns the metrics of one stored transaction at ref.
func (s *ReportService) Evaluate(ctx context.Context, fp core.Fingerprint, ref core.Date) (core.Evaluation, error) {
	tx, err := s.store.Get(ctx, fp)
	if err != nil {
		return core.Evaluation{}, fmt.Errorf("get transaction %s: %w", fp.Short(), err)
	}
	r, err := s.evaluate(fp, tx, ref)
	if err != nil {
		return core.Evaluation{}, err
	}
	return core.Evaluation{Fingerprint: fp, Transaction: tx, Result: r}, nil
}
