package core

import (
	"github.com/shopspring/decimal"
)

const (
	// PerDiemScale is the number of fractional digits of a reported per-diem.
	PerDiemScale = 2
	// rawScale is the precision kept for per-diems that are summed before
	// being rounded.
	rawScale = 16
)

// Result holds the metrics of a transaction as of a reference date. It is
// derived on demand and never stored.
type Result struct {
	Since       Date            `json:"since"`
	End         Date            `json:"end"`      // first day after the lifetime
	LastDay     Date            `json:"last_day"` // inclusive end
	TotalDays   int             `json:"total_days"`
	ElapsedDays int             `json:"elapsed_days"`
	Progress    float64         `json:"progress"`
	CostToDate  decimal.Decimal `json:"cost_to_date"`
	PerDiem     decimal.Decimal `json:"per_diem"`
	PerDiemRaw  decimal.Decimal `json:"-"`
}

// Evaluate computes how much of tx has been consumed as of ref.
//
// The lifetime covers [Since, End). Elapsed days are 0 before Since, the full
// span on or after the last covered day, and ref-Since in between. Money is
// divided exactly and rounded half-up to cents.
func Evaluate(tx Transaction, ref Date) (Result, error) {
	end, err := LifetimeEnd(tx.Since, tx.Lifetime)
	if err != nil {
		return Result{}, err
	}
	total := tx.Since.DaysUntil(end)
	r := Result{
		Since:      tx.Since,
		End:        end,
		LastDay:    end.AddDays(-1),
		TotalDays:  total,
		CostToDate: decimal.Zero,
		PerDiem:    decimal.Zero,
		PerDiemRaw: decimal.Zero,
	}
	if total <= 0 {
		return r, nil
	}

	switch {
	case ref.Before(tx.Since):
		r.ElapsedDays = 0
	case !ref.Before(r.LastDay):
		r.ElapsedDays = total
	default:
		r.ElapsedDays = tx.Since.DaysUntil(ref)
	}

	if r.ElapsedDays == total {
		r.Progress = 1.0
	} else {
		r.Progress = float64(r.ElapsedDays) / float64(total)
	}

	days := decimal.NewFromInt(int64(total))
	r.PerDiem = tx.Amount.DivRound(days, PerDiemScale)
	r.PerDiemRaw = tx.Amount.DivRound(days, rawScale)
	r.CostToDate = tx.Amount.Mul(decimal.NewFromInt(int64(r.ElapsedDays))).DivRound(days, AmountScale)
	return r, nil
}

// Evaluate is a shorthand for the package level Evaluate.
func (t Transaction) Evaluate(ref Date) (Result, error) {
	return Evaluate(t, ref)
}

// LastDay returns the last calendar day covered by the transaction.
func (t Transaction) LastDay() (Date, error) {
	end, err := LifetimeEnd(t.Since, t.Lifetime)
	if err != nil {
		return Date{}, err
	}
	return end.AddDays(-1), nil
}

// IsActiveOn reports whether ref falls within the transaction's lifetime.
func (t Transaction) IsActiveOn(ref Date) bool {
	last, err := t.LastDay()
	if err != nil {
		return false
	}
	return !ref.Before(t.Since) && !ref.After(last)
}
