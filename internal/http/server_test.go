package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"costoflife/internal/cache"
	"costoflife/internal/core"
	"costoflife/internal/ledger/memory"
	"costoflife/internal/parser"
	"costoflife/internal/services"
)

var testNow = time.Date(2021, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New()
	b := parser.Builder{Now: func() time.Time { return testNow }}
	txs := services.NewTransactionService(store, nil, b, nil)
	reports := services.NewReportService(store, nil, 2, nil)
	srv := NewServer(":0", txs, reports, nil, Options{Now: func() time.Time { return testNow }})
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request ID header", path)
		}
	}
}

func TestRecordAndRead(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/transactions", `{"line":"Subscription 120€ 1m12x 010121 #tag1 #tag2"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("record status=%d body=%s", rr.Code, rr.Body)
	}
	created := decode[map[string]any](t, rr)
	fp, _ := created["fingerprint"].(string)
	if len(fp) != 64 {
		t.Fatalf("fingerprint = %q", fp)
	}
	if created["amount"] != "120" || created["since"] != "2021-01-01" || created["lifetime"] != "1m12x" {
		t.Errorf("created = %v", created)
	}
	if rr.Header().Get("Location") != "/api/transactions/"+fp {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}

	rr = do(t, srv, http.MethodPost, "/api/transactions", `{"line":"Subscription #tag2 #tag1 010121 1m12x 120.00€"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("duplicate status=%d", rr.Code)
	}
	if dup := decode[map[string]any](t, rr); dup["existed"] != true {
		t.Errorf("duplicate should report existed: %v", dup)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions/"+fp+"?on=11.01.2021", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status=%d body=%s", rr.Code, rr.Body)
	}
	ev := decode[struct {
		Title  string `json:"title"`
		Result struct {
			ElapsedDays int    `json:"elapsed_days"`
			PerDiem     string `json:"per_diem"`
			LastDay     string `json:"last_day"`
		} `json:"result"`
	}](t, rr)
	if ev.Title != "Subscription" || ev.Result.ElapsedDays != 10 || ev.Result.PerDiem != "0.33" || ev.Result.LastDay != "2021-12-31" {
		t.Errorf("evaluation = %+v", ev)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions", "")
	if list := decode[[]map[string]any](t, rr); len(list) != 1 {
		t.Errorf("list has %d entries", len(list))
	}

	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+fp, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodGet, "/api/transactions/"+fp, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status=%d", rr.Code)
	}
}

func TestRecordPlainText(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("Coffee 3€ #food\n"))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"missing amount", http.MethodPost, "/api/transactions", `{"line":"Coffee #food"}`, http.StatusBadRequest},
		{"invalid date token", http.MethodPost, "/api/transactions", `{"line":"Coffee 3€ 320121"}`, http.StatusBadRequest},
		{"empty line", http.MethodPost, "/api/transactions", `{"line":"   "}`, http.StatusBadRequest},
		{"lifetime past the calendar", http.MethodPost, "/api/transactions", `{"line":"Forever 1€ 9000y 010121"}`, http.StatusBadRequest},
		{"amount too large", http.MethodPost, "/api/transactions", `{"line":"Yacht 100000000000000000€"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/transactions", `{"line":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/parse", `{"text":"Coffee 3€"}`, http.StatusBadRequest},
		{"bad fingerprint", http.MethodGet, "/api/transactions/xyz", "", http.StatusBadRequest},
		{"unknown fingerprint", http.MethodDelete, "/api/transactions/" + strings.Repeat("ab", 32), "", http.StatusNotFound},
		{"bad reference date", http.MethodGet, "/api/cost?on=31.02.2021", "", http.StatusBadRequest},
		{"search without query", http.MethodGet, "/api/search", "", http.StatusBadRequest},
		{"wrong method", http.MethodPut, "/api/cost", "", http.StatusMethodNotAllowed},
		{"dotfile scan", http.MethodGet, "/.env", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.target, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body)
			}
		})
	}
}

func TestParseDoesNotStore(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/parse", `{"line":"Laptop 1500€ 1y3x 150321 #tech"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	got := decode[map[string]any](t, rr)
	if got["title"] != "Laptop" || got["lifetime"] != "1y3x" || got["since"] != "2021-03-15" {
		t.Errorf("parsed = %v", got)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions", "")
	if list := decode[[]any](t, rr); len(list) != 0 {
		t.Errorf("parse stored a transaction")
	}
}

func TestReports(t *testing.T) {
	srv := newTestServer(t)
	for _, line := range []string{
		"Subscription 120€ 1m12x 010121 #tag1 #tag2",
		"Coffee 3€ #food",
	} {
		if rr := do(t, srv, http.MethodPost, "/api/transactions", `{"line":"`+line+`"}`); rr.Code != http.StatusCreated {
			t.Fatalf("record %q status=%d", line, rr.Code)
		}
	}

	rr := do(t, srv, http.MethodGet, "/api/cost", "")
	cost := decode[map[string]any](t, rr)
	if cost["cost_of_life"] != "3.33" || cost["active"] != float64(2) || cost["date"] != "2021-06-01" {
		t.Errorf("cost = %v", cost)
	}

	rr = do(t, srv, http.MethodGet, "/api/cost?on=2021-06-02", "")
	if cost := decode[map[string]any](t, rr); cost["cost_of_life"] != "0.33" {
		t.Errorf("cost tomorrow = %v", cost)
	}

	rr = do(t, srv, http.MethodGet, "/api/summary", "")
	summary := decode[[]map[string]any](t, rr)
	if len(summary) != 2 || summary[0]["title"] != "Coffee" {
		t.Errorf("summary = %v", summary)
	}

	rr = do(t, srv, http.MethodGet, "/api/tags?on=010621", "")
	tags := decode[[]map[string]any](t, rr)
	if len(tags) != 3 || tags[0]["tag"] != "food" {
		t.Errorf("tags = %v", tags)
	}

	rr = do(t, srv, http.MethodGet, "/api/search?q=TAG1", "")
	if found := decode[[]map[string]any](t, rr); len(found) != 1 || found[0]["title"] != "Subscription" {
		t.Errorf("search = %v", found)
	}
}

func TestExportImport(t *testing.T) {
	src := newTestServer(t)
	do(t, src, http.MethodPost, "/api/transactions", `{"line":"Coffee 3€ #food"}`)
	do(t, src, http.MethodPost, "/api/transactions", `{"line":"Rent 1729€ 1m12x 010121 #rent"}`)

	rr := do(t, src, http.MethodGet, "/api/export", "")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("export status=%d type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
	journal := rr.Body.String()
	if strings.Count(journal, "\n") != 2 {
		t.Fatalf("journal = %q", journal)
	}

	dst := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(journal))
	req.Header.Set("Content-Type", "text/plain")
	rr = httptest.NewRecorder()
	dst.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("import status=%d body=%s", rr.Code, rr.Body)
	}
	if res := decode[map[string]any](t, rr); res["added"] != float64(2) || res["skipped"] != float64(0) {
		t.Errorf("import = %v", res)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("garbage\n"))
	rr = httptest.NewRecorder()
	dst.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed import status=%d", rr.Code)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Coffee 3€  ", "Coffee 3€"},
		{"Coffee\t3€", "Coffee 3€"},
		{"Coffee 3€\r\n", "Coffee 3€"},
		{"Cof\x00fee", "Coffee"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMetrics(t *testing.T) {
	store := memory.New()
	b := parser.Builder{Now: func() time.Time { return testNow }}
	txs := services.NewTransactionService(store, nil, b, nil)
	reports := services.NewReportService(store, cache.NewLRUCache[core.Result](16, time.Hour), 1, nil)
	srv := NewServer(":0", txs, reports, nil, Options{Now: func() time.Time { return testNow }})
	t.Cleanup(func() { srv.limiter.Stop() })

	do(t, srv, http.MethodPost, "/api/transactions", `{"line":"Coffee 3€ #food"}`)
	do(t, srv, http.MethodGet, "/api/cost", "")
	do(t, srv, http.MethodGet, "/api/cost", "")
	do(t, srv, http.MethodGet, "/wp-admin/setup.php", "")

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"http_requests_total 5\n",
		"suspicious_requests_total 1\n",
		"result_cache_hits_total 1\n",
		"result_cache_misses_total 1\n",
		"result_cache_entries 1\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics lack %q:\n%s", want, body)
		}
	}
}
