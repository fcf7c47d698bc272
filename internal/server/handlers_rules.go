package server

import (
	"net/http"

	"github.com/jonathan/freight-doc-review/internal/types"
)

// handleListRules lists a user's comparison rules, defaults first
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.errorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	rules, err := s.store.ListRules(r.Context(), userID)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"rules": rules,
		"total": len(rules),
	})
}

// handleGetRule retrieves a comparison rule by ID
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "rule")
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	rule, err := s.store.GetRule(r.Context(), id)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	if rule == nil {
		s.errorResponse(w, http.StatusNotFound, "Comparison rule not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, rule)
}

// handleCreateRule creates a comparison rule
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req types.CreateRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "user_id, name and comparison_instructions are required")
		return
	}

	rule, err := s.store.CreateRule(r.Context(), &req)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, rule)
}

// handleUpdateRule replaces the content of a comparison rule
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "rule")
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	var req types.UpdateRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "name and comparison_instructions are required")
		return
	}

	rule, err := s.store.UpdateRule(r.Context(), id, &req)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, rule)
}

// handleDeleteRule deletes a non-default comparison rule
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "rule")
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	if err := s.store.DeleteRule(r.Context(), id); err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}
