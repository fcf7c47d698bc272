package analysis

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError means the request is missing a required field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DocumentsNotFoundError means none of the requested documents exist for the quotation.
type DocumentsNotFoundError struct {
	QuotationID string
	DocumentIDs []string
}

func (e *DocumentsNotFoundError) Error() string {
	return "Failed to fetch documents"
}

// Detail describes which lookup came back empty, for logs.
func (e *DocumentsNotFoundError) Detail() string {
	return fmt.Sprintf("no documents [%s] for quotation %s", strings.Join(e.DocumentIDs, ", "), e.QuotationID)
}

// RuleNotFoundError means the requested comparison rule does not exist.
type RuleNotFoundError struct {
	RuleID uuid.UUID
}

func (e *RuleNotFoundError) Error() string {
	return "Comparison rule not found"
}
