package http

import (
	"net/http"

	"hadaf/internal/core"
	"hadaf/internal/log"
)

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.ListRecurringRules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule core.RecurringRule
	if err := readJSON(r, &rule); err != nil {
		writeError(w, err)
		return
	}
	if rule.ID == "" {
		rule.ID = newID()
	}
	// A fresh rule starts its schedule at its start date.
	if rule.NextDue.IsZero() {
		rule.NextDue = rule.StartDate
	}
	if err := rule.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.AddRecurringRule(r.Context(), rule); err != nil {
		writeError(w, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Recurring rule created",
		log.FieldRuleID, rule.ID,
		"frequency", string(rule.Frequency))
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteRecurringRule(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCatchUp materializes every overdue rule period up to today. The
// startup loop does this on a timer; the endpoint exists so a caller can
// force it after editing rules.
func (s *Server) handleCatchUp(w http.ResponseWriter, r *http.Request) {
	created, err := s.processor.CatchUp(r.Context(), core.Today())
	if created > 0 {
		s.invalidateCaches()
	}
	if err != nil {
		// Partial progress still counts; report both.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"created": created,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}
