// Package extraction pulls the fixed shipment field set out of each document with one model call per document.
// Failures are isolated: a document that cannot be read yields empty fields and never aborts the batch.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/freight-doc-review/internal/llm"
	"github.com/jonathan/freight-doc-review/internal/schemas"
	"github.com/jonathan/freight-doc-review/internal/types"
)

// Defaults for Options.
const (
	DefaultTimeout        = 60 * time.Second
	DefaultMaxConcurrency = 4
)

// Options configures an Extractor.
type Options struct {
	Timeout        time.Duration
	MaxConcurrency int
	Tier           llm.ModelTier
}

func (o Options) normalize() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = DefaultMaxConcurrency
	}
	if o.Tier == "" {
		o.Tier = llm.TierStandard
	}
	return o
}

// Result is the outcome for one document. Fields is all-empty whenever Err is set.
type Result struct {
	DocumentID string
	Fields     types.ExtractedFields
	Err        error
}

// Extractor runs per-document field extraction.
type Extractor struct {
	client llm.Client
	schema llm.ExtractionSchema
	opts   Options
}

// New creates an Extractor using client for model calls.
func New(client llm.Client, opts Options) *Extractor {
	return &Extractor{
		client: client,
		schema: llm.ShipmentFieldsSchema(),
		opts:   opts.normalize(),
	}
}

// ExtractAll extracts every document concurrently and returns results in input order.
func (e *Extractor) ExtractAll(ctx context.Context, docs []types.LoadedDocument) []Result {
	results := make([]Result, len(docs))

	var g errgroup.Group
	g.SetLimit(e.opts.MaxConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			results[i] = e.Extract(ctx, doc)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Extract runs extraction for a single document.
func (e *Extractor) Extract(ctx context.Context, doc types.LoadedDocument) Result {
	result := Result{DocumentID: doc.ID}

	if !doc.Available() {
		result.Err = &DownloadError{DocumentID: doc.ID, Cause: doc.LoadErr}
		log.Printf("[extract] skipping %s (%s): %v", doc.DisplayName(), doc.ID, result.Err)
		return result
	}

	prompt := llm.BuildExtractionPrompt(e.schema, doc.DisplayName())
	attachments := []llm.Attachment{{MIMEType: doc.MIMEType, Data: doc.Data}}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := e.client.GenerateJSON(callCtx, prompt, attachments, e.opts.Tier)
	if err != nil {
		result.Err = &ExtractionError{DocumentID: doc.ID, Cause: err}
		log.Printf("[extract] %s (%s) failed after %s: %v", doc.DisplayName(), doc.ID, time.Since(start).Round(time.Millisecond), err)
		return result
	}

	fields, err := parseFields(raw)
	if err != nil {
		result.Err = &ParseError{DocumentID: doc.ID, Raw: raw, Cause: err}
		log.Printf("[extract] %s (%s) returned unparseable output: %v", doc.DisplayName(), doc.ID, err)
		return result
	}

	result.Fields = fields
	log.Printf("[extract] %s (%s) done in %s", doc.DisplayName(), doc.ID, time.Since(start).Round(time.Millisecond))
	return result
}

// parseFields turns a model reply into the fixed field set.
func parseFields(raw string) (types.ExtractedFields, error) {
	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.ValidateExtractedFields(cleaned); err != nil {
		return types.ExtractedFields{}, err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return types.ExtractedFields{}, err
	}
	return types.ExtractedFieldsFromMap(values), nil
}
