// Command costoflife records expenses from one-line descriptions and reports
// how much they cost per day.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"costoflife/internal/cli"
	"costoflife/internal/config"
	"costoflife/internal/core"
	"costoflife/internal/journal"
	"costoflife/internal/log"
	"costoflife/internal/parser"
)

const usage = `Usage: costoflife [-on DATE] <command> [args]

Commands:
  add [-y] <line>     parse a transaction, confirm and record it
  summary             active transactions and their per diem
  tags                per diem aggregated by tag
  search <pattern>    transactions whose title or tags match
  cost                the cost of life only
  export              write the journal to stdout
  import <file>       record every line of a journal file

Example:
  costoflife add Car 2000€ #transport 5y
`

// Exit codes.
const (
	exitOK    = 0
	exitInput = 1
	exitOther = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("costoflife", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	on := fs.String("on", "", "reference date (YYYY-MM-DD, DD.MM.YYYY or DDMMYY), defaults to today")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitInput
	}

	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(envOr("LOG_LEVEL", "warn"), stderr)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		return exitOther
	}

	today := core.Today(time.Now())
	ref := today
	if *on != "" {
		d, err := core.ParseDate(*on)
		if err != nil {
			fmt.Fprintf(stderr, "invalid date %q: %v\n", *on, err)
			return exitInput
		}
		ref = d
	}

	ctx := context.Background()
	res := cli.InitBackend(ctx, logger, cfg, parser.Builder{})
	defer func() {
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	}()

	a := &app{
		txs:     res.Transactions,
		reports: res.Reports,
		ref:     ref,
		today:   today,
		in:      stdin,
		out:     stdout,
	}
	if err := a.dispatch(ctx, fs.Args()); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) || core.IsInputError(err) || errors.Is(err, journal.ErrMalformedRecord) {
		return exitInput
	}
	return exitOther
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
