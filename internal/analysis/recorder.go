package analysis

import (
	"errors"
	"time"

	"github.com/jonathan/freight-doc-review/internal/comparison"
	"github.com/jonathan/freight-doc-review/internal/credentials"
	"github.com/jonathan/freight-doc-review/internal/extraction"
)

// Recorder receives pipeline measurements.
type Recorder interface {
	ObserveAnalysis(outcome string, duration time.Duration)
	ObserveDownload(ok bool)
	ObserveExtraction(outcome string)
	ObserveFallbackSections(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAnalysis(string, time.Duration) {}
func (nopRecorder) ObserveDownload(bool)                  {}
func (nopRecorder) ObserveExtraction(string)              {}
func (nopRecorder) ObserveFallbackSections(int)           {}

// Analysis outcomes.
const (
	OutcomeSuccess          = "success"
	OutcomeInvalid          = "invalid_request"
	OutcomeNotFound         = "not_found"
	OutcomeConfiguration    = "configuration_error"
	OutcomeComparisonFailed = "comparison_failed"
	OutcomeError            = "error"
)

func outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}

	var (
		validationErr *ValidationError
		docsErr       *DocumentsNotFoundError
		ruleErr       *RuleNotFoundError
		cfgErr        *credentials.ConfigurationError
		cmpErr        *comparison.Error
	)
	switch {
	case errors.As(err, &validationErr):
		return OutcomeInvalid
	case errors.As(err, &docsErr), errors.As(err, &ruleErr):
		return OutcomeNotFound
	case errors.As(err, &cfgErr):
		return OutcomeConfiguration
	case errors.As(err, &cmpErr):
		return OutcomeComparisonFailed
	default:
		return OutcomeError
	}
}

// Extraction outcomes.
const (
	ExtractionOK          = "ok"
	ExtractionUnavailable = "unavailable"
	ExtractionFailed      = "model_error"
	ExtractionUnparseable = "unparseable"
)

func extractionOutcome(err error) string {
	var (
		dlErr    *extraction.DownloadError
		parseErr *extraction.ParseError
	)
	switch {
	case err == nil:
		return ExtractionOK
	case errors.As(err, &dlErr):
		return ExtractionUnavailable
	case errors.As(err, &parseErr):
		return ExtractionUnparseable
	default:
		return ExtractionFailed
	}
}
