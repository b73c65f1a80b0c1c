package http

import (
	"fmt"
	"net/http"
	"strings"

	"hadaf/internal/core"
	"hadaf/internal/ledger"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.summaryCache.Get("summary"); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	accounts, txs, err := s.loadLedger(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	summary := ledger.Summarize(accounts, txs, settings)
	s.summaryCache.Set("summary", summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	accounts, txs, err := s.loadLedger(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("liquid") == "true" {
		writeJSON(w, http.StatusOK, ledger.LiquidBalances(accounts, txs))
		return
	}
	writeJSON(w, http.StatusOK, ledger.AccountBalances(accounts, txs))
}

// reportParams parses the shared kind/currency/period query set.
func reportParams(r *http.Request) (core.TransactionKind, core.Currency, ledger.Period, error) {
	kind := core.TransactionKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = core.Expense
	}
	if kind != core.Expense && kind != core.Income {
		return "", "", "", badRequest("kind must be expense or income")
	}

	currency := core.Currency(r.URL.Query().Get("currency"))
	if currency == "" {
		currency = core.CurrencyTL
	}
	if !currency.Valid() {
		return "", "", "", badRequest("unknown currency %q", string(currency))
	}

	period := ledger.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = ledger.PeriodMonth
	}
	if !period.Valid() {
		return "", "", "", badRequest("period must be month, year or all")
	}

	return kind, currency, period, nil
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	kind, currency, period, err := reportParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	key := fmt.Sprintf("%s|%s|%s", kind, currency, period)
	if cached, ok := s.reportCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	accounts, txs, err := s.loadLedger(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	totals := ledger.CategoryTotals(accounts, txs, kind, currency, period, core.Today())
	s.reportCache.Set(key, totals)
	writeJSON(w, http.StatusOK, totals)
}

// handleCategoryHistory drills into one category, newest first.
func (s *Server) handleCategoryHistory(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeError(w, badRequest("empty category name"))
		return
	}

	_, currency, _, err := reportParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	from, err := dateQuery(r, "from", core.Date{})
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := dateQuery(r, "to", core.Date{})
	if err != nil {
		writeError(w, err)
		return
	}

	accounts, txs, err := s.loadLedger(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ledger.CategoryHistory(accounts, txs, name, currency, from, to))
}
