package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"costoflife/internal/core"
	"costoflife/internal/ledger"
	"costoflife/internal/ledger/memory"
	"costoflife/internal/parser"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2021, 6, 1, 9, 30, 0, 0, time.UTC)

func testBuilder() parser.Builder {
	return parser.Builder{Now: func() time.Time { return fixedNow }}
}

type fakePublisher struct {
	mu        sync.Mutex
	published []core.Fingerprint
	err       error
}

func (p *fakePublisher) PublishTransactionRecorded(_ context.Context, fp core.Fingerprint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, fp)
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestTransactionService_Record(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewTransactionService(memory.New(), pub, testBuilder(), nil)

	rec, err := svc.Record(ctx, "Rent 1729€ 1m12x 010121 #rent")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Existed {
		t.Error("first record should not exist yet")
	}
	if rec.Transaction.Title != "Rent" {
		t.Errorf("title = %q", rec.Transaction.Title)
	}
	if rec.Fingerprint != rec.Transaction.Fingerprint() {
		t.Error("fingerprint does not match the transaction")
	}

	again, err := svc.Record(ctx, "Rent #rent 010121 1m12x 1729.00€")
	if err != nil {
		t.Fatalf("Record duplicate: %v", err)
	}
	if !again.Existed || again.Fingerprint != rec.Fingerprint {
		t.Errorf("duplicate: existed=%v same fp=%v", again.Existed, again.Fingerprint == rec.Fingerprint)
	}

	if len(pub.published) != 1 || pub.published[0] != rec.Fingerprint {
		t.Errorf("published = %v, want exactly the first fingerprint", pub.published)
	}
}

func TestTransactionService_RecordErrors(t *testing.T) {
	svc := NewTransactionService(memory.New(), nil, testBuilder(), nil)

	tests := []struct {
		name string
		line string
		want error
	}{
		{"no amount", "Coffee #food", core.ErrMissingAmount},
		{"no title", "3€ #food", core.ErrMissingTitle},
		{"bad date", "Coffee 3€ 320121", core.ErrInvalidDate},
		{"precision", "Coffee 3.333€", core.ErrInvalidAmountPrecision},
		{"lifetime past the calendar", "Forever 1€ 9000y 010121", core.ErrArithmeticOverflow},
		{"amount too large", "Yacht 100000000000000000€", core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), tt.line)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !core.IsInputError(err) {
				t.Errorf("%v should be an input error", err)
			}
		})
	}
}

func TestTransactionService_RejectedLifetimeKeepsReportsWorking(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewTransactionService(store, nil, testBuilder(), nil)
	reports := NewReportService(store, nil, 2, nil)

	if _, err := svc.Record(ctx, "Coffee 3€ 010621"); err != nil {
		t.Fatal(err)
	}
	forever := core.Transaction{
		Title:    "Forever",
		Amount:   decimal.NewFromInt(1),
		Since:    core.NewDate(2021, 1, 1),
		Lifetime: core.Lifetime{Unit: core.Year, Count: 9000, Repeat: 1},
		Tags:     []string{},
	}
	if _, err := svc.RecordTransaction(ctx, forever); !errors.Is(err, core.ErrArithmeticOverflow) {
		t.Fatalf("RecordTransaction err = %v, want ErrArithmeticOverflow", err)
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d transactions, want 1", store.Len())
	}

	ref := core.NewDate(2021, 6, 1)
	total, err := reports.CostOfLife(ctx, ref)
	if err != nil {
		t.Fatalf("CostOfLife: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(3)) {
		t.Errorf("CostOfLife = %s, want 3", total)
	}
	if _, err := reports.Summary(ctx, ref); err != nil {
		t.Fatalf("Summary: %v", err)
	}
}

func TestTransactionService_PublishFailureDoesNotFailRecord(t *testing.T) {
	store := memory.New()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewTransactionService(store, pub, testBuilder(), nil)

	if _, err := svc.Record(context.Background(), "Coffee 3€"); err != nil {
		t.Fatalf("Record should succeed when publishing fails: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d transactions, want 1", store.Len())
	}
}

func TestTransactionService_OnWrite(t *testing.T) {
	ctx := context.Background()
	svc := NewTransactionService(memory.New(), nil, testBuilder(), nil)

	writes := 0
	svc.OnWrite(func() error {
		writes++
		return nil
	})

	rec, err := svc.Record(ctx, "Coffee 3€")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Record(ctx, "Coffee 3€"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, rec.Fingerprint); err != nil {
		t.Fatal(err)
	}
	if writes != 2 {
		t.Errorf("writes = %d, want 2 (insert and delete, not the duplicate)", writes)
	}

	svc.OnWrite(func() error { return errors.New("disk full") })
	if _, err := svc.Record(ctx, "Tea 2€"); err == nil {
		t.Error("expected flush error to be returned")
	}
}

func TestTransactionService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := NewTransactionService(memory.New(), nil, testBuilder(), nil)

	rec, err := svc.Record(ctx, "Coffee 3€")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, rec.Fingerprint); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, rec.Fingerprint); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, rec.Fingerprint); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestTransactionService_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := NewTransactionService(memory.New(), nil, testBuilder(), nil)
	for _, line := range []string{
		"Rent 1729€ 1m12x 010121 #rent",
		"Coffee 3€ #food",
		"Laptop 1500€ 1y3x 150321 #tech",
	} {
		if _, err := src.Record(ctx, line); err != nil {
			t.Fatalf("Record %q: %v", line, err)
		}
	}

	var buf bytes.Buffer
	n, err := src.Export(ctx, &buf)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 3 {
		t.Errorf("exported %d, want 3", n)
	}

	dst := NewTransactionService(memory.New(), nil, testBuilder(), nil)
	res, err := dst.Import(ctx, strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Added != 3 || res.Skipped != 0 {
		t.Errorf("first import = %+v", res)
	}

	res, err = dst.Import(ctx, strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if res.Added != 0 || res.Skipped != 3 {
		t.Errorf("second import = %+v, want all skipped", res)
	}

	want, _ := src.List(ctx)
	got, _ := dst.List(ctx)
	if len(got) != len(want) {
		t.Fatalf("imported %d transactions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Fingerprint() != want[i].Fingerprint() {
			t.Errorf("transaction %d differs after round trip: %q vs %q", i, got[i].Title, want[i].Title)
		}
	}
}

func TestTransactionService_ImportMalformed(t *testing.T) {
	store := memory.New()
	svc := NewTransactionService(store, nil, testBuilder(), nil)

	input := "2021-06-01T09:30:00Z::2021-06-01::Coffee 3€\nnot a record\n"
	if _, err := svc.Import(context.Background(), strings.NewReader(input)); err == nil {
		t.Fatal("expected an error for the malformed line")
	}
	if store.Len() != 0 {
		t.Errorf("nothing should be stored, got %d", store.Len())
	}
}

func TestTransactionService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		svc := &TransactionService{}
		if err := svc.Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})

	t.Run("collects errors", func(t *testing.T) {
		svc := NewTransactionService(memory.New(), nil, testBuilder(), nil)
		closed := 0
		svc.CloseWith(
			closerFunc(func() error { closed++; return errors.New("storage") }),
			nil,
			closerFunc(func() error { closed++; return errors.New("amqp") }),
		)
		err := svc.Close()
		if err == nil {
			t.Fatal("expected an error")
		}
		if closed != 2 {
			t.Errorf("closed %d resources, want 2", closed)
		}
		if !strings.Contains(err.Error(), "storage") || !strings.Contains(err.Error(), "amqp") {
			t.Errorf("error %q should mention both failures", err)
		}
	})
}
