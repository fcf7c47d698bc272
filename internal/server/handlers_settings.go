package server

import (
	"net/http"

	"github.com/jonathan/freight-doc-review/internal/credentials"
	"github.com/jonathan/freight-doc-review/internal/types"
)

// handleGetAISettings returns a user's stored Gemini API key
func (s *Server) handleGetAISettings(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.errorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	raw, err := s.store.GetSetting(r.Context(), userID, credentials.SettingsCategory, credentials.SettingsKey)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"api_key": credentials.Normalize(raw)})
}

// handleSaveAISettings stores a user's Gemini API key
func (s *Server) handleSaveAISettings(w http.ResponseWriter, r *http.Request) {
	var req types.SaveAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "user_id and api_key are required")
		return
	}

	err := s.store.UpsertSetting(r.Context(), req.UserID, credentials.SettingsCategory, credentials.SettingsKey, req.APIKey)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}
