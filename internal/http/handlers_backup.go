package http

import (
	"net/http"

	"hadaf/internal/backup"
	"hadaf/internal/core"
	"hadaf/internal/log"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings core.Settings
	if err := readJSON(r, &settings); err != nil {
		writeError(w, err)
		return
	}
	settings = settings.Normalize()
	if !settings.DisplayCurrency.Valid() {
		writeError(w, core.ErrInvalidCurrency)
		return
	}
	if err := s.store.PutSettings(r.Context(), settings); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, http.StatusOK, settings)
}

// handleExport streams the full data set as one JSON document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := backup.ExportJSON(r.Context(), s.store)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="hadaf-export.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// handleImport replaces the full data set with the posted document.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := backup.Import(r.Context(), s.store, data); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateCaches()

	log.FromContext(r.Context()).InfoContext(r.Context(), "Data set imported",
		log.FieldOperation, log.OpImport)
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}
