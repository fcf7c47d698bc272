// Package comparison runs the single cross-document consistency review over a quotation's documents.
package comparison

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/freight-doc-review/internal/llm"
	"github.com/jonathan/freight-doc-review/internal/types"
)

// DefaultTimeout bounds the review call.
const DefaultTimeout = 120 * time.Second

// Error means the review call failed; the whole analysis cannot continue.
type Error struct {
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cross-document comparison failed: %v", e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures a Comparator.
type Options struct {
	Timeout time.Duration
	Tier    llm.ModelTier
}

// Comparator sends every document to the model in one multimodal request.
type Comparator struct {
	client llm.Client
	opts   Options
}

// New creates a Comparator.
func New(client llm.Client, opts Options) *Comparator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Tier == "" {
		opts.Tier = llm.TierAdvanced
	}
	return &Comparator{client: client, opts: opts}
}

// Compare returns the model's review text unmodified.
// Documents whose download failed appear in the manifest but contribute no attachment.
func (c *Comparator) Compare(ctx context.Context, docs []types.LoadedDocument, extracted map[string]types.ExtractedFields, sup Supplement) (string, error) {
	prompt, err := BuildPrompt(docs, extracted, sup)
	if err != nil {
		return "", &Error{Cause: err}
	}

	attachments := make([]llm.Attachment, 0, len(docs))
	for _, doc := range docs {
		if !doc.Available() {
			continue
		}
		attachments = append(attachments, llm.Attachment{MIMEType: doc.MIMEType, Data: doc.Data})
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	start := time.Now()
	report, err := c.client.GenerateContent(callCtx, prompt, attachments, c.opts.Tier)
	if err != nil {
		log.Printf("[compare] review of %d documents failed after %s: %v", len(docs), time.Since(start).Round(time.Millisecond), err)
		return "", &Error{Cause: err}
	}

	log.Printf("[compare] reviewed %d documents (%d attachments) in %s, %d chars",
		len(docs), len(attachments), time.Since(start).Round(time.Millisecond), len(report))
	return report, nil
}
