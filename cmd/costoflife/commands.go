package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"costoflife/internal/core"
	"costoflife/internal/services"
)

// usageError reports a command line that names no known command or misses
// its arguments.
type usageError string

func (e usageError) Error() string { return string(e) }

type app struct {
	txs     *services.TransactionService
	reports *services.ReportService
	ref     core.Date
	today   core.Date
	in      io.Reader
	out     io.Writer
}

// dispatch runs the command named by args[0]. Every command but export ends
// with the cost of life line; so does an empty command line.
func (a *app) dispatch(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "":
	case "add":
		err = a.add(ctx, args)
	case "summary":
		err = a.summary(ctx)
	case "tags":
		err = a.tags(ctx)
	case "search":
		err = a.search(ctx, args)
	case "cost":
	case "export":
		return a.export(ctx)
	case "import":
		err = a.importFile(ctx, args)
	default:
		return usageError(fmt.Sprintf("unknown command %q", cmd))
	}
	if err != nil {
		return err
	}
	return a.printCost(ctx)
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	yes := fs.Bool("y", false, "record without asking")
	if err := fs.Parse(args); err != nil {
		return usageError("add: " + err.Error())
	}
	line := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(line) == "" {
		return usageError("tell me what to add, eg: Car 2000€ #transport 5y")
	}

	tx, err := a.txs.Parse(line)
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", line, err)
	}
	if !*yes {
		if err := printPreview(a.out, tx); err != nil {
			return err
		}
		if !confirm(a.in, a.out, "Do you want to add it?") {
			fmt.Fprintln(a.out, "ok, another time")
			return nil
		}
	}

	rec, err := a.txs.RecordTransaction(ctx, tx)
	if err != nil {
		return err
	}
	if rec.Existed {
		fmt.Fprintf(a.out, "already recorded (%s)\n", rec.Fingerprint.Short())
		return nil
	}
	fmt.Fprintln(a.out, "done!")
	return nil
}

// confirm asks a yes/no question; an empty answer means yes.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [Y/n] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "y", "yes":
		return true
	default:
		return false
	}
}

func (a *app) summary(ctx context.Context) error {
	rows, err := a.reports.Summary(ctx, a.ref)
	if err != nil {
		return err
	}
	return printSummary(a.out, rows)
}

func (a *app) tags(ctx context.Context) error {
	rows, err := a.reports.Tags(ctx, a.ref)
	if err != nil {
		return err
	}
	return printTags(a.out, rows)
}

func (a *app) search(ctx context.Context, args []string) error {
	pattern := strings.Join(args, " ")
	if strings.TrimSpace(pattern) == "" {
		return usageError("search: a pattern is required")
	}
	found, err := a.reports.Search(ctx, pattern, a.ref)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintln(a.out, `No matches found ¯\_(ツ)_/¯`)
		return nil
	}
	return printSearch(a.out, found)
}

func (a *app) export(ctx context.Context) error {
	_, err := a.txs.Export(ctx, a.out)
	return err
}

func (a *app) importFile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("import: exactly one file is required")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	res, err := a.txs.Import(ctx, f)
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}
	fmt.Fprintf(a.out, "imported %d transactions, %d already recorded\n", res.Added, res.Skipped)
	return nil
}

func (a *app) printCost(ctx context.Context) error {
	cost, err := a.reports.CostOfLife(ctx, a.ref)
	if err != nil {
		return err
	}
	if a.ref.Equal(a.today) {
		fmt.Fprintf(a.out, "Today CostOf.Life is: %s€\n", core.FormatAmount(cost))
	} else {
		fmt.Fprintf(a.out, "CostOf.Life on %s is: %s€\n", a.ref, core.FormatAmount(cost))
	}
	return nil
}
