package extraction

import "fmt"

// DownloadError means the document could not be fetched, so nothing was sent to the model.
type DownloadError struct {
	DocumentID string
	Cause      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("document %s unavailable: %v", e.DocumentID, e.Cause)
}

func (e *DownloadError) Unwrap() error {
	return e.Cause
}

// ExtractionError means the model call for the document failed or timed out.
type ExtractionError struct {
	DocumentID string
	Cause      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for document %s: %v", e.DocumentID, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// ParseError means the model replied with something that is not a flat JSON object.
type ParseError struct {
	DocumentID string
	Raw        string
	Cause      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse extraction for document %s: %v", e.DocumentID, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
