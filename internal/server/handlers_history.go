package server

import (
	"net/http"
)

// handleListHistory lists saved analyses of a quotation, latest first
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	quotationID := r.URL.Query().Get("quotation_id")
	if quotationID == "" {
		s.errorResponse(w, http.StatusBadRequest, "quotation_id is required")
		return
	}

	history, err := s.store.ListHistory(r.Context(), quotationID)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"quotation_id": quotationID,
		"history":      history,
		"total":        len(history),
	})
}

// handleGetHistory retrieves one saved analysis
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "history")
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	entry, err := s.store.GetHistory(r.Context(), id)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	if entry == nil {
		s.errorFromErr(w, r, &ErrNotFound{Resource: "Analysis history"})
		return
	}

	s.jsonResponse(w, http.StatusOK, entry)
}
