package server

import (
	"net/http"

	"github.com/jonathan/freight-doc-review/internal/types"
)

// documentView adds the human-readable document type to a stored document.
type documentView struct {
	types.Document
	TypeName string `json:"document_type_name"`
}

// handleListDocuments lists the documents submitted for a quotation
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	quotationID := r.URL.Query().Get("quotation_id")
	if quotationID == "" {
		s.errorResponse(w, http.StatusBadRequest, "quotation_id is required")
		return
	}

	exists, err := s.store.QuotationExists(r.Context(), quotationID)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	if !exists {
		s.errorResponse(w, http.StatusNotFound, "Quotation not found")
		return
	}

	docs, err := s.store.ListDocumentsByQuotation(r.Context(), quotationID)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	views := make([]documentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, documentView{Document: d, TypeName: types.DocumentTypeDisplayName(d.Type)})
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"quotation_id": quotationID,
		"documents":    views,
		"total":        len(views),
	})
}
