package http

import (
	"net/http"

	"hadaf/internal/core"
	"hadaf/internal/ledger"
	"hadaf/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	// Chronological order with the deterministic same-day tie-break.
	ledger.SortTransactions(txs)
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := readJSON(r, &tx); err != nil {
		writeError(w, err)
		return
	}
	if tx.ID == "" {
		tx.ID = newID()
	}
	if tx.Kind == core.Transfer {
		tx.Category = core.TransferCategory
	}
	if err := tx.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.AppendTransaction(r.Context(), tx); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateCaches()

	s.structured.LogTransactionStored(r.Context(), tx.ID, tx.AccountID, tx.Category, tx.Amount.Cents)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := readJSON(r, &tx); err != nil {
		writeError(w, err)
		return
	}
	tx.ID = r.PathValue("id")
	if tx.Kind == core.Transfer {
		tx.Category = core.TransferCategory
	}
	if err := tx.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.UpdateTransaction(r.Context(), tx); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateCaches()

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.FieldTransactionID, id)
	w.WriteHeader(http.StatusNoContent)
}
