package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// AnalyzeRequest is the inbound body of a cross-document analysis.
// UserID is only used to resolve the model credential.
type AnalyzeRequest struct {
	DocumentIDs []string   `json:"document_ids" validate:"required,min=1,dive,required"`
	QuotationID string     `json:"quotation_id" validate:"required"`
	UserID      string     `json:"user_id" validate:"required"`
	RuleID      *uuid.UUID `json:"rule_id,omitempty"`
}

// Validate validates the AnalyzeRequest using the validator.
func (r *AnalyzeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// DocumentFeedback is the review text assigned to one input document.
type DocumentFeedback struct {
	DocumentID    string `json:"document_id"`
	DocumentName  string `json:"document_name"`
	DocumentType  string `json:"document_type"`
	AIFeedback    string `json:"ai_feedback"`
	SequenceOrder int    `json:"sequence_order"`
	// Fallback is true when the review had no section for this document.
	Fallback bool `json:"-"`
}

// Critical check statuses reported by the model.
const (
	CheckStatusPass    = "PASS"
	CheckStatusFail    = "FAIL"
	CheckStatusWarning = "WARNING"
)

// CriticalCheckResult is one parsed "### Critical Check:" block.
type CriticalCheckResult struct {
	CheckName string `json:"check_name"`
	Status    string `json:"status"`
	Details   string `json:"details"`
	Issue     string `json:"issue"`
}

// AnalyzeResponse is the success payload of an analysis.
type AnalyzeResponse struct {
	Success               bool                       `json:"success"`
	FullFeedback          string                     `json:"full_feedback"`
	Results               []DocumentFeedback         `json:"results"`
	ExtractedData         map[string]ExtractedFields `json:"extracted_data"`
	CriticalChecksResults []CriticalCheckResult      `json:"critical_checks_results"`
	CriticalChecksList    []string                   `json:"critical_checks_list"`
	HistoryID             *uuid.UUID                 `json:"history_id,omitempty"`
}

// AnalysisHistory is a saved analysis run for a quotation.
type AnalysisHistory struct {
	ID                    uuid.UUID                  `json:"id"`
	QuotationID           string                     `json:"quotation_id"`
	UserID                string                     `json:"user_id"`
	RuleID                *uuid.UUID                 `json:"rule_id,omitempty"`
	Version               int                        `json:"version"`
	Status                string                     `json:"status"`
	FullFeedback          string                     `json:"full_feedback"`
	Results               []DocumentFeedback         `json:"results"`
	ExtractedData         map[string]ExtractedFields `json:"extracted_data"`
	CriticalChecksResults []CriticalCheckResult      `json:"critical_checks_results"`
	CreatedAt             time.Time                  `json:"created_at"`
}
