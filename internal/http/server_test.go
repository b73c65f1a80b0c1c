package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"hadaf/internal/core"
	"hadaf/internal/filestore"
	"hadaf/internal/ledger"
	"hadaf/internal/services"
)

func newTestServer(t *testing.T) (*Server, *filestore.Store) {
	t.Helper()
	store, err := filestore.Open(filepath.Join(t.TempDir(), "hadaf.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	processor := services.NewRecurringProcessor(store, nil)
	s := NewServer(":0", store, processor, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, store
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := doJSON(t, s, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /readyz = %d, want 200", rec.Code)
	}
}

func TestAccountLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Bank", "type": "bank", "currency": "USD", "initialBalance": 10000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/accounts = %d: %s", rec.Code, rec.Body.String())
	}
	var created core.Account
	decodeInto(t, rec, &created)
	if created.ID == "" {
		t.Fatal("created account has no id")
	}
	if created.OpeningBalance.Cents != 10000 {
		t.Errorf("opening balance = %d, want 10000", created.OpeningBalance.Cents)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/accounts", nil)
	var accounts []core.Account
	decodeInto(t, rec, &accounts)
	if len(accounts) != 2 { // default account plus the new one
		t.Fatalf("accounts = %d, want 2", len(accounts))
	}

	// The permanent default account must refuse deletion.
	rec = doJSON(t, s, http.MethodDelete, "/api/accounts/"+core.DefaultAccountID, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("DELETE default account = %d, want 409", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/accounts/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE account = %d, want 204", rec.Code)
	}
}

func TestTransactionFlowAndSummary(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2024-03-01", "amount": 90000, "type": "income",
		"accountId": core.DefaultAccountID, "category": "Salary",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST income = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2024-03-02", "amount": 1500, "type": "expense",
		"accountId": core.DefaultAccountID, "category": "Food",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST expense = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/summary = %d", rec.Code)
	}
	var summary ledger.Summary
	decodeInto(t, rec, &summary)
	if summary.TotalIncome.Cents != 90000 || summary.TotalExpense.Cents != 1500 {
		t.Errorf("summary totals = %+v", summary)
	}

	// A second read must serve the cached view with identical content.
	rec = doJSON(t, s, http.MethodGet, "/api/summary", nil)
	var again ledger.Summary
	decodeInto(t, rec, &again)
	if again.TotalIncome != summary.TotalIncome {
		t.Errorf("cached summary diverged: %+v vs %+v", again, summary)
	}

	// Writing invalidates the cache.
	rec = doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2024-03-03", "amount": 500, "type": "expense",
		"accountId": core.DefaultAccountID, "category": "Transport",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST expense = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/summary", nil)
	decodeInto(t, rec, &again)
	if again.TotalExpense.Cents != 2000 {
		t.Errorf("summary after write = %d, want 2000", again.TotalExpense.Cents)
	}
}

func TestTransferSetsFixedCategory(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{
		"id": "bank", "name": "Bank", "type": "bank", "currency": "TL", "initialBalance": 0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST account = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2024-03-01", "amount": 1000, "type": "transfer",
		"accountId": core.DefaultAccountID, "toAccountId": "bank", "targetAmount": 1000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST transfer = %d: %s", rec.Code, rec.Body.String())
	}
	var tx core.Transaction
	decodeInto(t, rec, &tx)
	if tx.Category != core.TransferCategory {
		t.Errorf("transfer category = %q, want %q", tx.Category, core.TransferCategory)
	}
}

func TestDuplicateTransactionConflicts(t *testing.T) {
	s, _ := newTestServer(t)

	body := map[string]any{
		"id": "t1", "date": "2024-03-01", "amount": 1000, "type": "expense",
		"accountId": core.DefaultAccountID, "category": "Food",
	}
	if rec := doJSON(t, s, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
		t.Fatalf("first POST = %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusConflict {
		t.Errorf("second POST = %d, want 409", rec.Code)
	}
}

func TestValidationErrorsReturn400(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"negative amount", map[string]any{
			"date": "2024-03-01", "amount": -5, "type": "expense",
			"accountId": core.DefaultAccountID, "category": "Food",
		}},
		{"self transfer", map[string]any{
			"date": "2024-03-01", "amount": 100, "type": "transfer",
			"accountId": core.DefaultAccountID, "toAccountId": core.DefaultAccountID, "targetAmount": 100,
		}},
		{"transfer without target", map[string]any{
			"date": "2024-03-01", "amount": 100, "type": "transfer",
			"accountId": core.DefaultAccountID,
		}},
		{"unknown field", map[string]any{
			"date": "2024-03-01", "amount": 100, "type": "expense",
			"accountId": core.DefaultAccountID, "category": "Food", "bogus": true,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("POST = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAccountLedgerEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	for day := 1; day <= 3; day++ {
		rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
			"date": fmt.Sprintf("2024-03-0%d", day), "amount": 1000, "type": "expense",
			"accountId": core.DefaultAccountID, "category": "Food",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("POST day %d = %d", day, rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodGet,
		"/api/accounts/"+core.DefaultAccountID+"/ledger?from=2024-03-02&to=2024-03-03", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET ledger = %d", rec.Code)
	}
	var h ledger.History
	decodeInto(t, rec, &h)
	if len(h.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(h.Entries))
	}
	if h.Opening.Cents != -1000 {
		t.Errorf("opening = %d, want -1000", h.Opening.Cents)
	}
	if h.Entries[1].Balance.Cents != -3000 {
		t.Errorf("final running balance = %d, want -3000", h.Entries[1].Balance.Cents)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/accounts/nope/ledger", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET ledger of unknown account = %d, want 404", rec.Code)
	}
}

func TestCategoryReportEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	today := core.Today()
	for i, cat := range []string{"Food", "Food", "Transport"} {
		rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
			"date": today.String(), "amount": 1000 * (i + 1), "type": "expense",
			"accountId": core.DefaultAccountID, "category": cat,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("POST = %d", rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/reports/categories?kind=expense&currency=TL&period=month", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET report = %d", rec.Code)
	}
	var totals []ledger.CategoryTotal
	decodeInto(t, rec, &totals)
	if len(totals) != 2 {
		t.Fatalf("totals = %+v, want 2 categories", totals)
	}
	if totals[0].Name != "Food" || totals[0].Total.Cents != 3000 {
		t.Errorf("top category = %+v, want Food 3000", totals[0])
	}

	rec = doJSON(t, s, http.MethodGet, "/api/reports/categories?period=decade", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad period = %d, want 400", rec.Code)
	}
}

func TestCatchUpEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	start := core.Today().AddDays(-3)
	rule := core.RecurringRule{
		ID: "r1", Amount: core.Money{Cents: 500}, Category: "Bills", Kind: core.Expense,
		AccountID: core.DefaultAccountID, Frequency: core.Daily,
		StartDate: start, NextDue: start, Active: true,
	}
	if err := store.AddRecurringRule(ctx, rule); err != nil {
		t.Fatalf("AddRecurringRule: %v", err)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/recurring/catch-up", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST catch-up = %d: %s", rec.Code, rec.Body.String())
	}
	var result map[string]int
	decodeInto(t, rec, &result)
	if result["created"] != 4 { // start date plus three elapsed days
		t.Errorf("created = %d, want 4", result["created"])
	}

	// Idempotent: a second run materializes nothing.
	rec = doJSON(t, s, http.MethodPost, "/api/recurring/catch-up", nil)
	decodeInto(t, rec, &result)
	if result["created"] != 0 {
		t.Errorf("second catch-up created = %d, want 0", result["created"])
	}
}

func TestExportImportEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2024-03-01", "amount": 2500, "type": "expense",
		"accountId": core.DefaultAccountID, "category": "Food",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET export = %d", rec.Code)
	}
	exported := rec.Body.Bytes()

	// Import into a fresh server.
	s2, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(exported))
	rec2 := httptest.NewRecorder()
	s2.Server.Handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("POST import = %d: %s", rec2.Code, rec2.Body.String())
	}

	rec2 = doJSON(t, s2, http.MethodGet, "/api/transactions", nil)
	var txs []core.Transaction
	decodeInto(t, rec2, &txs)
	if len(txs) != 1 || txs[0].Amount.Cents != 2500 {
		t.Errorf("imported transactions = %+v", txs)
	}

	// A foreign document must be rejected.
	req = httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader([]byte(`{"foo":1}`)))
	rec2 = httptest.NewRecorder()
	s2.Server.Handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("import foreign document = %d, want 400", rec2.Code)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET settings = %d", rec.Code)
	}
	var settings core.Settings
	decodeInto(t, rec, &settings)
	if settings.DisplayCurrency != core.CurrencyTL {
		t.Errorf("default display currency = %s, want TL", settings.DisplayCurrency)
	}

	settings.DisplayCurrency = core.CurrencyEUR
	settings.AppName = ""
	rec = doJSON(t, s, http.MethodPut, "/api/settings", settings)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT settings = %d: %s", rec.Code, rec.Body.String())
	}
	decodeInto(t, rec, &settings)
	if settings.DisplayCurrency != core.CurrencyEUR {
		t.Errorf("display currency = %s, want EUR", settings.DisplayCurrency)
	}
	if settings.AppName == "" {
		t.Error("empty app name was not normalized to the default")
	}
}
