package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Evaluation pairs a transaction with its metrics at one reference date.
type Evaluation struct {
	Fingerprint Fingerprint
	Transaction Transaction
	Result      Result
}

// SummaryRow is one active transaction in a summary.
type SummaryRow struct {
	Fingerprint Fingerprint     `json:"fingerprint"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	PerDiem     decimal.Decimal `json:"per_diem"`
	Progress    float64         `json:"progress"`
	Since       Date            `json:"since"`
	LastDay     Date            `json:"last_day"`
	Tags        []string        `json:"tags"`
}

// TagRow aggregates the active transactions carrying one tag.
type TagRow struct {
	Tag     string          `json:"tag"`
	Count   int             `json:"count"`
	PerDiem decimal.Decimal `json:"per_diem"`
	Share   float64         `json:"share"` // fraction of the total cost of life
}

func isActive(e Evaluation, ref Date) bool {
	return !ref.Before(e.Result.Since) && !ref.After(e.Result.LastDay)
}

// CostOfLifeOf sums the unrounded per-diems of the evaluations active on ref
// and rounds the total to cents.
func CostOfLifeOf(evals []Evaluation, ref Date) decimal.Decimal {
	total := decimal.Zero
	for _, e := range evals {
		if isActive(e, ref) {
			total = total.Add(e.Result.PerDiemRaw)
		}
	}
	return RoundHalfUp(total, AmountScale)
}

// CostOfLife evaluates txs sequentially and returns the daily cost of the
// ones active on ref.
func CostOfLife(txs []Transaction, ref Date) (decimal.Decimal, error) {
	evals := make([]Evaluation, 0, len(txs))
	for _, tx := range txs {
		r, err := Evaluate(tx, ref)
		if err != nil {
			return decimal.Zero, err
		}
		evals = append(evals, Evaluation{Transaction: tx, Result: r})
	}
	return CostOfLifeOf(evals, ref), nil
}

// Summarize lists the evaluations active on ref, most advanced first. Ties
// are broken by title so the output is stable.
func Summarize(evals []Evaluation, ref Date) []SummaryRow {
	rows := make([]SummaryRow, 0, len(evals))
	for _, e := range evals {
		if !isActive(e, ref) {
			continue
		}
		rows = append(rows, SummaryRow{
			Fingerprint: e.Fingerprint,
			Title:       e.Transaction.Title,
			Amount:      e.Transaction.Amount,
			PerDiem:     e.Result.PerDiem,
			Progress:    e.Result.Progress,
			Since:       e.Result.Since,
			LastDay:     e.Result.LastDay,
			Tags:        e.Transaction.Tags,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Progress != rows[j].Progress {
			return rows[i].Progress > rows[j].Progress
		}
		return rows[i].Title < rows[j].Title
	})
	return rows
}

// AggregateTags groups the evaluations active on ref by tag, summing their
// rounded per-diems. Rows are sorted by per-diem, highest first.
func AggregateTags(evals []Evaluation, ref Date) []TagRow {
	byTag := map[string]*TagRow{}
	for _, e := range evals {
		if !isActive(e, ref) {
			continue
		}
		for _, tag := range e.Transaction.Tags {
			row, ok := byTag[tag]
			if !ok {
				row = &TagRow{Tag: tag, PerDiem: decimal.Zero}
				byTag[tag] = row
			}
			row.Count++
			row.PerDiem = row.PerDiem.Add(e.Result.PerDiem)
		}
	}

	total := CostOfLifeOf(evals, ref)
	rows := make([]TagRow, 0, len(byTag))
	for _, row := range byTag {
		if total.IsPositive() {
			row.Share = row.PerDiem.Div(total).InexactFloat64()
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].PerDiem.Cmp(rows[j].PerDiem); c != 0 {
			return c > 0
		}
		return rows[i].Tag < rows[j].Tag
	})
	return rows
}

// Matches reports whether every word of pattern appears, case-insensitively,
// in the title or in one of the tags of tx.
func Matches(tx Transaction, pattern string) bool {
	words := strings.Fields(strings.ToLower(pattern))
	if len(words) == 0 {
		return false
	}
	title := strings.ToLower(tx.Title)
	for _, w := range words {
		w = strings.TrimLeft(w, "#.")
		if w == "" {
			continue
		}
		if strings.Contains(title, w) {
			continue
		}
		found := false
		for _, tag := range tx.Tags {
			if strings.Contains(tag, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
