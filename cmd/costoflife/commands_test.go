package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"costoflife/internal/core"
	"costoflife/internal/ledger/memory"
	"costoflife/internal/parser"
	"costoflife/internal/services"
)

var testNow = time.Date(2021, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, stdin string) (*app, *bytes.Buffer) {
	t.Helper()
	store := memory.New()
	b := parser.Builder{Now: func() time.Time { return testNow }}
	out := &bytes.Buffer{}
	today := core.Today(testNow)
	return &app{
		txs:     services.NewTransactionService(store, nil, b, nil),
		reports: services.NewReportService(store, nil, 1, nil),
		ref:     today,
		today:   today,
		in:      strings.NewReader(stdin),
		out:     out,
	}, out
}

func TestAddConfirm(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		stdin    string
		want     string
		recorded int
	}{
		{"yes flag", []string{"-y", "Coffee", "3€", "#food"}, "", "done!", 1},
		{"default answer", []string{"Coffee", "3€", "#food"}, "\n", "done!", 1},
		{"explicit no", []string{"Coffee", "3€", "#food"}, "n\n", "ok, another time", 0},
		{"closed input", []string{"Coffee", "3€", "#food"}, "", "ok, another time", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, out := newTestApp(t, tt.stdin)
			if err := a.dispatch(context.Background(), append([]string{"add"}, tt.args...)); err != nil {
				t.Fatalf("dispatch: %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output %q does not contain %q", out.String(), tt.want)
			}
			txs, _ := a.txs.List(context.Background())
			if len(txs) != tt.recorded {
				t.Errorf("recorded %d transactions, want %d", len(txs), tt.recorded)
			}
		})
	}
}

func TestAddPreview(t *testing.T) {
	a, out := newTestApp(t, "y\n")
	if err := a.dispatch(context.Background(), []string{"add", "Subscription 120€ 1m12x 010121 #tag1"}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Subscription", "120.00€", "2021-01-01 - 2021-12-31", "0.33€", "Today CostOf.Life is: 0.33€"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("preview lacks %q:\n%s", want, out)
		}
	}
}

func TestAddTwiceReportsExisting(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx := context.Background()
	if err := a.dispatch(ctx, []string{"add", "-y", "Coffee 3€"}); err != nil {
		t.Fatal(err)
	}
	if err := a.dispatch(ctx, []string{"add", "-y", "Coffee 3.00€"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "already recorded") {
		t.Errorf("output = %q", out)
	}
}

func TestReports(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx := context.Background()
	for _, line := range []string{"Subscription 120€ 1m12x 010121 #tag1 #tag2", "Coffee 3€ #food"} {
		if err := a.dispatch(ctx, []string{"add", "-y", line}); err != nil {
			t.Fatal(err)
		}
	}

	out.Reset()
	if err := a.dispatch(ctx, []string{"summary"}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[1], "Coffee") || !strings.Contains(lines[3], "3.33€") {
		t.Errorf("summary:\n%s", out)
	}

	out.Reset()
	if err := a.dispatch(ctx, []string{"tags"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "#food") || !strings.Contains(out.String(), "#tag2") {
		t.Errorf("tags:\n%s", out)
	}

	out.Reset()
	if err := a.dispatch(ctx, []string{"search", "nothing-like-this"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No matches found") {
		t.Errorf("search miss:\n%s", out)
	}

	out.Reset()
	if err := a.dispatch(ctx, []string{"search", "tag1"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Subscription") || strings.Contains(out.String(), "Coffee") {
		t.Errorf("search:\n%s", out)
	}
}

func TestCostOnOtherDay(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx := context.Background()
	if err := a.dispatch(ctx, []string{"add", "-y", "Subscription 120€ 1m12x 010121"}); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	a.ref = core.NewDate(2022, 1, 1)
	if err := a.dispatch(ctx, []string{"cost"}); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "CostOf.Life on 2022-01-01 is: 0.00€\n" {
		t.Errorf("cost = %q", got)
	}
}

func TestExportImport(t *testing.T) {
	src, out := newTestApp(t, "")
	ctx := context.Background()
	for _, line := range []string{"Coffee 3€ #food", "Rent 1729€ 1m12x 010121 #rent"} {
		if err := src.dispatch(ctx, []string{"add", "-y", line}); err != nil {
			t.Fatal(err)
		}
	}
	out.Reset()
	if err := src.dispatch(ctx, []string{"export"}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "journal.txt")
	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	dst, dstOut := newTestApp(t, "")
	if err := dst.dispatch(ctx, []string{"import", path}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dstOut.String(), "imported 2 transactions, 0 already recorded") {
		t.Errorf("import output = %q", dstOut)
	}
}

func TestDispatchErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unknown command", []string{"frobnicate"}, exitInput},
		{"add without line", []string{"add"}, exitInput},
		{"missing amount", []string{"add", "-y", "Coffee"}, exitInput},
		{"bad date token", []string{"add", "-y", "Coffee 3€ 320121"}, exitInput},
		{"search without pattern", []string{"search"}, exitInput},
		{"import without file", []string{"import"}, exitInput},
		{"import missing file", []string{"import", "/does/not/exist"}, exitOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestApp(t, "")
			err := a.dispatch(context.Background(), tt.args)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := exitCode(err); got != tt.code {
				t.Errorf("exitCode(%v) = %d, want %d", err, got, tt.code)
			}
		})
	}
}

func TestExitCodeMalformedJournal(t *testing.T) {
	a, _ := newTestApp(t, "")
	path := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(path, []byte("garbage\n"), 0644); err != nil {
		t.Fatal(err)
	}
	err := a.dispatch(context.Background(), []string{"import", path})
	if err == nil {
		t.Fatal("expected an error")
	}
	if code := exitCode(err); code != exitInput {
		t.Errorf("exitCode(%v) = %d", err, code)
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, strings.Repeat("·", barWidth) + "   0%"},
		{1, strings.Repeat("▪", barWidth) + " 100%"},
		{0.5, strings.Repeat("▪", 10) + strings.Repeat("·", 10) + "  50%"},
		{2, strings.Repeat("▪", barWidth) + " 100%"},
	}
	for _, tt := range tests {
		if got := bar(tt.in); got != tt.want {
			t.Errorf("bar(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
