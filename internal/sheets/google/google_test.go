package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"costoflife/internal/core"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestParseExported(t *testing.T) {
	fp := strings.Repeat("ab", 32)
	values := [][]any{
		{"Since", "Last day", "Title", "Amount", "Per diem", "Lifetime", "Tags", "Fingerprint"},
		{"2021-01-01", "2021-12-31", "Rent", "1729.00", "4.74", "1m12x", "#rent", fp},
		{"2021-01-01", "2021-01-01", "Coffee"},
		{"2021-01-01", "2021-01-01", "Bad", "1.00", "1.00", "1d1x", "", "not-a-fingerprint"},
	}
	got := parseExported(values)
	if len(got) != 1 || !got[fp] {
		t.Fatalf("parseExported = %v", got)
	}
}

type fakeSheets struct {
	mu      sync.Mutex
	rows    [][]any
	appends int
	updates int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{"values": f.rows})
	case strings.HasSuffix(r.URL.Path, ":append"):
		var vr struct {
			Values [][]any `json:"values"`
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &vr)
		f.rows = append(f.rows, vr.Values...)
		f.appends++
		json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "Transactions!A2:H2"},
		})
	case r.Method == http.MethodPut:
		var vr struct {
			Values [][]any `json:"values"`
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &vr)
		f.rows = append(vr.Values, f.rows...)
		f.updates++
		json.NewEncoder(w).Encode(map[string]any{})
	default:
		http.Error(w, "unexpected request", http.StatusBadRequest)
	}
}

func newFakeClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewWithService(svc, "sheet-id", "Transactions")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClientAppendTransaction(t *testing.T) {
	fake := &fakeSheets{}
	c := newFakeClient(t, fake)
	ctx := context.Background()

	tx, err := core.NewTransaction("Rent", decimal.NewFromInt(1729), core.NewDate(2021, 1, 1),
		core.Lifetime{Unit: core.Month, Count: 1, Repeat: 12}, []string{"rent"})
	if err != nil {
		t.Fatal(err)
	}
	r, _ := core.Evaluate(tx, tx.Since)

	ref, err := c.AppendTransaction(ctx, tx, r)
	if err != nil {
		t.Fatal(err)
	}
	if ref != "Transactions!A2:H2" {
		t.Fatalf("ref = %q", ref)
	}
	if _, err := c.AppendTransaction(ctx, tx, r); err != nil {
		t.Fatal(err)
	}
	if fake.updates != 1 || fake.appends != 2 {
		t.Fatalf("header writes = %d, appends = %d", fake.updates, fake.appends)
	}

	exported, err := c.ExportedFingerprints(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !exported[tx.Fingerprint().String()] {
		t.Fatalf("exported = %v", exported)
	}
}

func TestClientRejectsInvalid(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.AppendTransaction(context.Background(), core.Transaction{}, core.Result{}); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := NewWithService(nil, " ", "x"); err == nil {
		t.Fatal("expected error for missing spreadsheet ID")
	}
}
