package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ComparisonRule customizes the cross-document review for a user.
type ComparisonRule struct {
	ID                     uuid.UUID `json:"id"`
	UserID                 string    `json:"user_id"`
	Name                   string    `json:"name"`
	Description            string    `json:"description"`
	ExtractionFields       []string  `json:"extraction_fields"`
	ComparisonInstructions string    `json:"comparison_instructions"`
	CriticalChecks         []string  `json:"critical_checks"`
	IsDefault              bool      `json:"is_default"`
	CreatedAt              time.Time `json:"created_at"`
}

// CreateRuleRequest is the body for creating a comparison rule.
type CreateRuleRequest struct {
	UserID                 string   `json:"user_id" validate:"required"`
	Name                   string   `json:"name" validate:"required"`
	Description            string   `json:"description"`
	ExtractionFields       []string `json:"extraction_fields"`
	ComparisonInstructions string   `json:"comparison_instructions" validate:"required"`
	CriticalChecks         []string `json:"critical_checks" validate:"dive,required"`
}

// Validate validates the CreateRuleRequest using the validator.
func (r *CreateRuleRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// UpdateRuleRequest is the body for replacing a comparison rule's content.
type UpdateRuleRequest struct {
	Name                   string   `json:"name" validate:"required"`
	Description            string   `json:"description"`
	ExtractionFields       []string `json:"extraction_fields"`
	ComparisonInstructions string   `json:"comparison_instructions" validate:"required"`
	CriticalChecks         []string `json:"critical_checks" validate:"dive,required"`
}

// Validate validates the UpdateRuleRequest using the validator.
func (r *UpdateRuleRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// SaveAPIKeyRequest stores a user's Gemini API key.
type SaveAPIKeyRequest struct {
	UserID string `json:"user_id" validate:"required"`
	APIKey string `json:"api_key" validate:"required"`
}

// Validate validates the SaveAPIKeyRequest using the validator.
func (r *SaveAPIKeyRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
