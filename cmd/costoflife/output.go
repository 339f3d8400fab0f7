package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"costoflife/internal/core"

	"github.com/shopspring/decimal"
)

const barWidth = 20

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// bar renders progress in [0, 1] as a fixed width gauge followed by the
// percentage.
func bar(progress float64) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress*barWidth + 0.5)
	return fmt.Sprintf("%s%s %3.0f%%",
		strings.Repeat("▪", filled), strings.Repeat("·", barWidth-filled), progress*100)
}

func money(d decimal.Decimal) string {
	return core.FormatAmount(d) + "€"
}

func hashTags(tags []string) string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = "#" + t
	}
	return strings.Join(out, " ")
}

func printPreview(w io.Writer, tx core.Transaction) error {
	r, err := tx.Evaluate(tx.Since)
	if err != nil {
		return err
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "Name\t: %s\n", tx.Title)
	fmt.Fprintf(tw, "Tags\t: %s\n", strings.Join(tx.Tags, ", "))
	fmt.Fprintf(tw, "Amount\t: %s\n", money(tx.Amount))
	fmt.Fprintf(tw, "Lifetime\t: %s\n", tx.Lifetime)
	fmt.Fprintf(tw, "From - To\t: %s - %s\n", r.Since, r.LastDay)
	fmt.Fprintf(tw, "Per Diem\t: %s\n", money(r.PerDiem))
	return tw.Flush()
}

func printSummary(w io.Writer, rows []core.SummaryRow) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "Item\tPrice\tDiem\tProgress")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Title, money(r.Amount), money(r.PerDiem), bar(r.Progress))
	}
	return tw.Flush()
}

func printTags(w io.Writer, rows []core.TagRow) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "Tag\tCount\tDiem\t%")
	for _, r := range rows {
		fmt.Fprintf(tw, "#%s\t%d\t%s\t%s\n", r.Tag, r.Count, money(r.PerDiem), bar(r.Share))
	}
	return tw.Flush()
}

func printSearch(w io.Writer, found []core.Evaluation) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "Item\tPrice\tDiem\tStart\tEnd\tTags\t%")
	price, diem := decimal.Zero, decimal.Zero
	for _, e := range found {
		tx, r := e.Transaction, e.Result
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.Title, money(tx.Amount), money(r.PerDiem), r.Since, r.LastDay, hashTags(tx.Tags), bar(r.Progress))
		price = price.Add(tx.Amount)
		diem = diem.Add(r.PerDiem)
	}
	fmt.Fprintf(tw, "\t%s\t%s\t\t\t\t\n", money(price), money(diem))
	return tw.Flush()
}
