package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/freight-doc-review/internal/analysis"
	"github.com/jonathan/freight-doc-review/internal/comparison"
	"github.com/jonathan/freight-doc-review/internal/credentials"
	"github.com/jonathan/freight-doc-review/internal/db"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates a requested resource does not exist
type ErrNotFound struct {
	Resource string
}

func (e *ErrNotFound) Error() string {
	return e.Resource + " not found"
}

// comparisonFailedMessage hides provider details from callers.
const comparisonFailedMessage = "Failed to process cross-document comparison. Please try again."

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		notFoundErr   *ErrNotFound
		analysisErr   *analysis.ValidationError
		docsErr       *analysis.DocumentsNotFoundError
		ruleErr       *analysis.RuleNotFoundError
	)

	// Configuration and comparison failures fall through to 500.
	switch {
	case errors.As(err, &validationErr), errors.As(err, &analysisErr), errors.Is(err, db.ErrDefaultRule):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr), errors.As(err, &docsErr), errors.As(err, &ruleErr), errors.Is(err, db.ErrRuleNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message shown to API callers for err.
func PublicMessage(err error) string {
	var (
		validationErr *ErrValidation
		analysisErr   *analysis.ValidationError
		configErr     *credentials.ConfigurationError
		comparisonErr *comparison.Error
	)

	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &analysisErr):
		return analysisErr.Message
	case errors.As(err, &comparisonErr):
		return comparisonFailedMessage
	case errors.As(err, &configErr):
		return configErr.Message
	case errors.Is(err, db.ErrDefaultRule):
		return "Default rules cannot be deleted"
	case errors.Is(err, db.ErrRuleNotFound):
		return "Comparison rule not found"
	case HTTPStatus(err) == http.StatusNotFound:
		return err.Error()
	default:
		return "Internal server error"
	}
}
