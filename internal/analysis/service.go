// Package analysis orchestrates a cross-document review: it resolves the caller's model
// credential, loads the quotation's documents, extracts fields per document, runs the
// single comparison call and splits the result back into per-document feedback.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/freight-doc-review/internal/comparison"
	"github.com/jonathan/freight-doc-review/internal/credentials"
	"github.com/jonathan/freight-doc-review/internal/extraction"
	"github.com/jonathan/freight-doc-review/internal/feedback"
	"github.com/jonathan/freight-doc-review/internal/fetch"
	"github.com/jonathan/freight-doc-review/internal/llm"
	"github.com/jonathan/freight-doc-review/internal/types"
)

// DocumentStore looks up document metadata. Unknown IDs are simply absent from the result.
type DocumentStore interface {
	GetDocumentsByIDs(ctx context.Context, quotationID string, ids []string) ([]types.Document, error)
}

// RuleStore looks up comparison rules. A missing rule returns nil, nil.
type RuleStore interface {
	GetRule(ctx context.Context, id uuid.UUID) (*types.ComparisonRule, error)
}

// HistoryStore persists finished analyses.
type HistoryStore interface {
	SaveAnalysis(ctx context.Context, h *types.AnalysisHistory) (*types.AnalysisHistory, error)
}

// KeyResolver returns the model API key for a caller.
type KeyResolver interface {
	Resolve(ctx context.Context, userID string) (string, error)
}

// DownloadFunc fetches a document body.
type DownloadFunc func(ctx context.Context, url string) (*fetch.DocumentResult, error)

// Dependencies are the collaborators of a Service. Rules, History and Recorder are optional.
type Dependencies struct {
	Documents   DocumentStore
	Rules       RuleStore
	History     HistoryStore
	Credentials KeyResolver
	Clients     llm.ClientFactory
	Download    DownloadFunc
	Recorder    Recorder
}

// Options tunes concurrency and per-call timeouts.
type Options struct {
	MaxConcurrency    int
	DownloadTimeout   time.Duration
	ExtractionTimeout time.Duration
	ComparisonTimeout time.Duration
	ExtractionTier    llm.ModelTier
	ComparisonTier    llm.ModelTier
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MaxConcurrency:    extraction.DefaultMaxConcurrency,
		DownloadTimeout:   fetch.DefaultTimeout,
		ExtractionTimeout: extraction.DefaultTimeout,
		ComparisonTimeout: comparison.DefaultTimeout,
		ExtractionTier:    llm.TierStandard,
		ComparisonTier:    llm.TierAdvanced,
	}
}

func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = def.MaxConcurrency
	}
	if o.DownloadTimeout <= 0 {
		o.DownloadTimeout = def.DownloadTimeout
	}
	if o.ExtractionTimeout <= 0 {
		o.ExtractionTimeout = def.ExtractionTimeout
	}
	if o.ComparisonTimeout <= 0 {
		o.ComparisonTimeout = def.ComparisonTimeout
	}
	if o.ExtractionTier == "" {
		o.ExtractionTier = def.ExtractionTier
	}
	if o.ComparisonTier == "" {
		o.ComparisonTier = def.ComparisonTier
	}
	return o
}

// Service runs analyses. It holds no per-request state and is safe for concurrent use.
type Service struct {
	deps Dependencies
	opts Options
}

// NewService creates a Service.
func NewService(deps Dependencies, opts Options) *Service {
	opts = opts.normalize()
	if deps.Download == nil {
		fetchOpts := &fetch.Options{Timeout: opts.DownloadTimeout}
		deps.Download = func(ctx context.Context, url string) (*fetch.DocumentResult, error) {
			return fetch.Document(ctx, url, fetchOpts)
		}
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &Service{deps: deps, opts: opts}
}

// Analyze runs the full review for req.
// Per-document download and extraction failures degrade to empty fields; validation,
// credential, lookup and comparison failures abort with a typed error.
func (s *Service) Analyze(ctx context.Context, req types.AnalyzeRequest) (resp *types.AnalyzeResponse, err error) {
	start := time.Now()
	defer func() {
		s.deps.Recorder.ObserveAnalysis(outcome(err), time.Since(start))
	}()

	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	apiKey, err := s.deps.Credentials.Resolve(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	var rule *types.ComparisonRule
	if req.RuleID != nil {
		if rule, err = s.lookupRule(ctx, *req.RuleID); err != nil {
			return nil, err
		}
	}

	docs, err := s.lookupDocuments(ctx, req)
	if err != nil {
		return nil, err
	}

	client, err := s.deps.Clients.ForKey(ctx, apiKey)
	if err != nil {
		return nil, &credentials.ConfigurationError{Message: "failed to initialise Gemini client", Cause: err}
	}

	log.Printf("[analysis] quotation %s: reviewing %d documents", req.QuotationID, len(docs))

	loaded := s.loadDocuments(ctx, docs)

	extractor := extraction.New(client, extraction.Options{
		Timeout:        s.opts.ExtractionTimeout,
		MaxConcurrency: s.opts.MaxConcurrency,
		Tier:           s.opts.ExtractionTier,
	})
	extracted := make(map[string]types.ExtractedFields, len(loaded))
	for _, res := range extractor.ExtractAll(ctx, loaded) {
		extracted[res.DocumentID] = res.Fields
		s.deps.Recorder.ObserveExtraction(extractionOutcome(res.Err))
	}

	sup := comparison.SupplementFromRule(rule)
	comparator := comparison.New(client, comparison.Options{
		Timeout: s.opts.ComparisonTimeout,
		Tier:    s.opts.ComparisonTier,
	})
	report, err := comparator.Compare(ctx, loaded, extracted, sup)
	if err != nil {
		return nil, err
	}

	results := feedback.Reattribute(report, docs)
	checks := feedback.ParseCriticalChecks(report)

	fallbacks := 0
	for _, r := range results {
		if r.Fallback {
			fallbacks++
		}
	}
	s.deps.Recorder.ObserveFallbackSections(fallbacks)

	resp = &types.AnalyzeResponse{
		Success:               true,
		FullFeedback:          report,
		Results:               results,
		ExtractedData:         extracted,
		CriticalChecksResults: checks,
		CriticalChecksList:    criticalCheckList(sup),
	}

	s.saveHistory(ctx, req, results, checks, resp)

	log.Printf("[analysis] quotation %s: done in %s (%d sections, %d fallbacks, %d checks)",
		req.QuotationID, time.Since(start).Round(time.Millisecond), len(results), fallbacks, len(checks))
	return resp, nil
}

func (s *Service) lookupRule(ctx context.Context, id uuid.UUID) (*types.ComparisonRule, error) {
	if s.deps.Rules == nil {
		return nil, &RuleNotFoundError{RuleID: id}
	}
	rule, err := s.deps.Rules.GetRule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load comparison rule %s: %w", id, err)
	}
	if rule == nil {
		return nil, &RuleNotFoundError{RuleID: id}
	}
	return rule, nil
}

// lookupDocuments fetches metadata and orders it by the request's ID order.
func (s *Service) lookupDocuments(ctx context.Context, req types.AnalyzeRequest) ([]types.Document, error) {
	found, err := s.deps.Documents.GetDocumentsByIDs(ctx, req.QuotationID, req.DocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}

	byID := make(map[string]types.Document, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}

	docs := make([]types.Document, 0, len(found))
	seen := make(map[string]bool, len(req.DocumentIDs))
	for _, id := range req.DocumentIDs {
		d, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		docs = append(docs, d)
	}

	if len(docs) == 0 {
		notFound := &DocumentsNotFoundError{QuotationID: req.QuotationID, DocumentIDs: req.DocumentIDs}
		log.Printf("[analysis] %s", notFound.Detail())
		return nil, notFound
	}
	if len(docs) < len(req.DocumentIDs) {
		log.Printf("[analysis] quotation %s: %d of %d requested documents not found", req.QuotationID, len(req.DocumentIDs)-len(docs), len(req.DocumentIDs))
	}
	return docs, nil
}

// loadDocuments downloads every document concurrently. A failed download is kept with LoadErr set.
func (s *Service) loadDocuments(ctx context.Context, docs []types.Document) []types.LoadedDocument {
	loaded := make([]types.LoadedDocument, len(docs))

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			ld := types.LoadedDocument{Document: doc, MIMEType: fetch.MIMEType(mimeSource(doc))}
			res, err := s.deps.Download(ctx, doc.URL)
			if err != nil {
				ld.LoadErr = err
				log.Printf("[analysis] download failed for %s (%s): %v", doc.DisplayName(), doc.ID, err)
			} else {
				ld.Data = res.Data
			}
			s.deps.Recorder.ObserveDownload(err == nil)
			loaded[i] = ld
			return nil
		})
	}
	_ = g.Wait()

	return loaded
}

func (s *Service) saveHistory(ctx context.Context, req types.AnalyzeRequest, results []types.DocumentFeedback, checks []types.CriticalCheckResult, resp *types.AnalyzeResponse) {
	if s.deps.History == nil {
		return
	}

	saved, err := s.deps.History.SaveAnalysis(ctx, &types.AnalysisHistory{
		QuotationID:           req.QuotationID,
		UserID:                req.UserID,
		RuleID:                req.RuleID,
		Status:                feedback.OverallStatus(checks, results),
		FullFeedback:          resp.FullFeedback,
		Results:               results,
		ExtractedData:         resp.ExtractedData,
		CriticalChecksResults: checks,
	})
	if err != nil {
		log.Printf("[analysis] quotation %s: failed to save history: %v", req.QuotationID, err)
		return
	}
	resp.HistoryID = &saved.ID
}

// mimeSource picks the name whose extension decides the MIME type.
func mimeSource(doc types.Document) string {
	if doc.Name != "" {
		return doc.Name
	}
	return doc.URL
}

func criticalCheckList(sup comparison.Supplement) []string {
	out := make([]string, 0, len(sup.CriticalChecks))
	for _, c := range sup.CriticalChecks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

var fieldMessages = map[string]string{
	"DocumentIDs": "document_ids array is required",
	"QuotationID": "quotation_id is required",
	"UserID":      "user_id is required",
}

func validateRequest(req *types.AnalyzeRequest) error {
	err := req.Validate()
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		// Element errors for document_ids report as DocumentIDs[0].
		field := verrs[0].StructField()
		if _, ok := fieldMessages[field]; !ok {
			field = "DocumentIDs"
		}
		return &ValidationError{Field: field, Message: fieldMessages[field]}
	}
	return &ValidationError{Message: err.Error()}
}
