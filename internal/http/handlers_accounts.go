package http

import (
	"net/http"
	"strings"

	"hadaf/internal/core"
	"hadaf/internal/ledger"
	"hadaf/internal/log"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var account core.Account
	if err := readJSON(r, &account); err != nil {
		writeError(w, err)
		return
	}
	if account.ID == "" {
		account.ID = newID()
	}
	account.Name = strings.TrimSpace(account.Name)
	if err := account.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.AddAccount(r.Context(), account); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateCaches()

	log.FromContext(r.Context()).InfoContext(r.Context(), "Account created",
		log.FieldAccountID, account.ID,
		log.FieldCurrency, string(account.Currency))
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var account core.Account
	if err := readJSON(r, &account); err != nil {
		writeError(w, err)
		return
	}
	account.ID = r.PathValue("id")
	if err := account.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.UpdateAccount(r.Context(), account); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateCaches()
	w.WriteHeader(http.StatusNoContent)
}

// handleAccountLedger reconstructs one account's running-balance ledger,
// optionally windowed by from/to query dates.
func (s *Server) handleAccountLedger(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	accounts, txs, err := s.loadLedger(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var account core.Account
	found := false
	for _, a := range accounts {
		if a.ID == id {
			account, found = a, true
			break
		}
	}
	if !found {
		writeError(w, core.ErrAccountNotFound)
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

	writeJSON(w, http.StatusOK, ledger.AccountHistory(account, txs, from, to))
}
