package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/freight-doc-review/internal/comparison"
	"github.com/jonathan/freight-doc-review/internal/credentials"
	"github.com/jonathan/freight-doc-review/internal/feedback"
	"github.com/jonathan/freight-doc-review/internal/fetch"
	"github.com/jonathan/freight-doc-review/internal/llm"
	"github.com/jonathan/freight-doc-review/internal/llm/llmtest"
	"github.com/jonathan/freight-doc-review/internal/types"
)

type fakeDocuments struct {
	docs  []types.Document
	err   error
	calls int
}

func (f *fakeDocuments) GetDocumentsByIDs(_ context.Context, quotationID string, ids []string) ([]types.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []types.Document
	for _, d := range f.docs {
		if want[d.ID] && d.QuotationID == quotationID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeRules map[uuid.UUID]*types.ComparisonRule

func (f fakeRules) GetRule(_ context.Context, id uuid.UUID) (*types.ComparisonRule, error) {
	return f[id], nil
}

type fakeHistory struct {
	mu    sync.Mutex
	saved []*types.AnalysisHistory
	err   error
}

func (f *fakeHistory) SaveAnalysis(_ context.Context, h *types.AnalysisHistory) (*types.AnalysisHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := *h
	out.ID = uuid.New()
	out.Version = len(f.saved) + 1
	f.saved = append(f.saved, &out)
	return &out, nil
}

type fakeSettings map[string]string

func (f fakeSettings) GetSetting(_ context.Context, userID, _, _ string) (json.RawMessage, error) {
	v, ok := f[userID]
	if !ok {
		return nil, nil
	}
	return json.RawMessage(v), nil
}

type countingRecorder struct {
	mu          sync.Mutex
	outcomes    []string
	downloads   map[bool]int
	extractions map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{downloads: map[bool]int{}, extractions: map[string]int{}}
}

func (r *countingRecorder) ObserveAnalysis(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *countingRecorder) ObserveDownload(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads[ok]++
}

func (r *countingRecorder) ObserveExtraction(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractions[outcome]++
}

func (r *countingRecorder) ObserveFallbackSections(int) {}

type harness struct {
	docs     *fakeDocuments
	client   *llmtest.FakeClient
	factory  *llmtest.Factory
	history  *fakeHistory
	recorder *countingRecorder
	rules    fakeRules
	failURLs map[string]bool
	service  *Service
}

func newHarness(t *testing.T, docs ...types.Document) *harness {
	t.Helper()
	h := &harness{
		docs:     &fakeDocuments{docs: docs},
		history:  &fakeHistory{},
		recorder: newCountingRecorder(),
		rules:    fakeRules{},
		failURLs: map[string]bool{},
		client: &llmtest.FakeClient{
			JSONFunc: func(context.Context, string, []llm.Attachment) (string, error) {
				return `{"consignor_name": "ACME Exports", "hs_code": "8471.30"}`, nil
			},
		},
	}
	h.factory = &llmtest.Factory{Client: h.client}
	h.service = NewService(Dependencies{
		Documents:   h.docs,
		Rules:       h.rules,
		History:     h.history,
		Credentials: credentials.NewResolver(fakeSettings{"u1": `{"value": "user-key"}`}, ""),
		Clients:     h.factory,
		Recorder:    h.recorder,
		Download: func(_ context.Context, url string) (*fetch.DocumentResult, error) {
			if h.failURLs[url] {
				return nil, &fetch.Error{URL: url, Message: "HTTP status 404", StatusCode: 404}
			}
			return &fetch.DocumentResult{URL: url, Data: []byte("bytes:" + url), StatusCode: 200}, nil
		},
	}, Options{})
	return h
}

func doc(id, name, docType string) types.Document {
	return types.Document{ID: id, QuotationID: "Q-1", Name: name, Type: docType, URL: "https://files.example.com/" + name}
}

func request(ids ...string) types.AnalyzeRequest {
	return types.AnalyzeRequest{DocumentIDs: ids, QuotationID: "Q-1", UserID: "u1"}
}

func TestAnalyze_HappyPath(t *testing.T) {
	h := newHarness(t, doc("1", "CI.pdf", "commercial-invoice"), doc("2", "PL.pdf", "packing-list"))
	report := "## CI.pdf\n### Critical Issues\n- None identified.\n\n## PL.pdf\n### Critical Issues\n- Missing: hs_code — not found"
	h.client.ContentFunc = func(context.Context, string, []llm.Attachment) (string, error) { return report, nil }

	resp, err := h.service.Analyze(context.Background(), request("1", "2"))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, report, resp.FullFeedback)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "1", resp.Results[0].DocumentID)
	assert.Equal(t, "CI.pdf", resp.Results[0].DocumentName)
	assert.Equal(t, "commercial-invoice", resp.Results[0].DocumentType)
	assert.Equal(t, 1, resp.Results[0].SequenceOrder)
	assert.Equal(t, "## CI.pdf\n### Critical Issues\n- None identified.", resp.Results[0].AIFeedback)
	assert.Equal(t, 2, resp.Results[1].SequenceOrder)
	assert.Contains(t, resp.Results[1].AIFeedback, "Missing: hs_code")

	require.Len(t, resp.ExtractedData, 2)
	for _, id := range []string{"1", "2"} {
		assert.Len(t, resp.ExtractedData[id].Map(), 15)
		assert.Equal(t, "ACME Exports", resp.ExtractedData[id].ConsignorName)
	}
	assert.Empty(t, resp.CriticalChecksResults)
	assert.NotNil(t, resp.CriticalChecksList)

	// One extraction per document plus exactly one comparison carrying both attachments.
	assert.Len(t, h.client.CallsOfKind("json"), 2)
	compare := h.client.CallsOfKind("content")
	require.Len(t, compare, 1)
	assert.Len(t, compare[0].Attachments, 2)
	assert.Equal(t, []string{"user-key"}, h.factory.Keys())

	require.Len(t, h.history.saved, 1)
	assert.Equal(t, "PASS", h.history.saved[0].Status)
	require.NotNil(t, resp.HistoryID)
	assert.Equal(t, []string{OutcomeSuccess}, h.recorder.outcomes)
}

func TestAnalyze_DownloadFailureDegrades(t *testing.T) {
	h := newHarness(t, doc("1", "CI.pdf", "commercial-invoice"), doc("2", "Broken.pdf", "packing-list"), doc("3", "Permit.pdf", "tk-32"))
	h.failURLs["https://files.example.com/Broken.pdf"] = true
	h.client.ContentFunc = func(_ context.Context, prompt string, _ []llm.Attachment) (string, error) {
		return "## CI.pdf\nfine\n## Broken.pdf\ncould not open\n## Permit.pdf\nfine too", nil
	}

	resp, err := h.service.Analyze(context.Background(), request("1", "2", "3"))
	require.NoError(t, err)

	require.Len(t, resp.Results, 3)
	assert.Equal(t, "## CI.pdf\nfine", resp.Results[0].AIFeedback)
	assert.Equal(t, "## Permit.pdf\nfine too", resp.Results[2].AIFeedback)

	assert.True(t, resp.ExtractedData["2"].IsEmpty())
	assert.Len(t, resp.ExtractedData["2"].Map(), 15)
	assert.Equal(t, "ACME Exports", resp.ExtractedData["1"].ConsignorName)
	assert.Equal(t, "ACME Exports", resp.ExtractedData["3"].ConsignorName)

	// The broken document is still listed for the comparator but sends no bytes.
	assert.Len(t, h.client.CallsOfKind("json"), 2)
	compare := h.client.CallsOfKind("content")
	require.Len(t, compare, 1)
	assert.Len(t, compare[0].Attachments, 2)
	assert.Contains(t, compare[0].Prompt, `"attachment_available": false`)
	assert.Contains(t, compare[0].Prompt, "## Broken.pdf")

	assert.Equal(t, 1, h.recorder.downloads[false])
	assert.Equal(t, 1, h.recorder.extractions[ExtractionUnavailable])
}

func TestAnalyze_ExtractionParseFailureDegrades(t *testing.T) {
	h := newHarness(t, doc("1", "CI.pdf", "commercial-invoice"), doc("2", "PL.pdf", "packing-list"))
	h.client.JSONFunc = func(_ context.Context, prompt string, _ []llm.Attachment) (string, error) {
		if strings.Contains(prompt, `"PL.pdf"`) {
			return "Sorry, the scan is unreadable.", nil
		}
		return `{"po_number": "PO-9"}`, nil
	}
	h.client.ContentFunc = func(context.Context, string, []llm.Attachment) (string, error) {
		return "## CI.pdf\na\n## PL.pdf\nb", nil
	}

	resp, err := h.service.Analyze(context.Background(), request("1", "2"))
	require.NoError(t, err)
	assert.Equal(t, "PO-9", resp.ExtractedData["1"].PONumber)
	assert.True(t, resp.ExtractedData["2"].IsEmpty())
	assert.Equal(t, 1, h.recorder.extractions[ExtractionUnparseable])
}

func TestAnalyze_OrderFollowsRequest(t *testing.T) {
	// Store returns documents in a different order than requested.
	h := newHarness(t, doc("3", "C.pdf", "other"), doc("1", "A.pdf", "other"), doc("2", "B.pdf", "other"))
	h.client.ContentFunc = func(context.Context, string, []llm.Attachment) (string, error) {
		return "## C.pdf\nc\n## A.pdf\na\n## B.pdf\nb", nil
	}

	resp, err := h.service.Analyze(context.Background(), request("1", "2", "3"))
	require.NoError(t, err)

	require.Len(t, resp.Results, 3)
	for i, want := range []string{"1", "2", "3"} {
		assert.Equal(t, want, resp.Results[i].DocumentID)
		assert.Equal(t, i+1, resp.Results[i].SequenceOrder)
	}
	assert.Equal(t, "## A.pdf\na", resp.Results[0].AIFeedback)
}

func TestAnalyze_MissingSectionFallsBack(t *testing.T) {
	h := newHarness(t, doc("1", "CI.pdf", "commercial-invoice"), doc("2", "PL.pdf", "packing-list"), doc("3", "Permit.pdf", "tk-32"))
	h.client.ContentFunc = func(context.Context, string, []llm.Attachment) (string, error) {
		return "## CI.pdf\nfine\n## Permit.pdf\nfine", nil
	}

	resp, err := h.service.Analyze(context.Background(), request("1", "2", "3"))
	require.NoError(t, err)

	assert.Equal(t, feedback.FallbackText("PL.pdf"), resp.Results[1].AIFeedback)
	require.Len(t, h.history.saved, 1)
	assert.Equal(t, "WARNING", h.history.saved[0].Status)
}

func TestAnalyze_ComparisonFailureIsFatal(t *testing.T) {
	h := newHarness(t, doc("1", "CI.pdf", "commercial-invoice"), doc("2", "PL.pdf", "packing-list"))
	h.client.ContentFunc = func(context.Context, string, []llm.Attachment) (string, error) {
		return "", errors.New("500 internal")
	}

	resp, err := h.service.Analyze(context.Background(), request("1", "2"))
	require.Error(t, err)
	assert.Nil(t, resp)

	var cmpErr *comparison.Error
	assert.ErrorAs(t, err, &cmpErr)
	assert.Empty(t, h.history.saved)
	assert.Equal(t, []string{OutcomeComparisonFailed}, h.recorder.outcomes)
}

func TestAnalyze_Validation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name    string
		req     types.AnalyzeRequest
		message string
	}{
		{name: "no documents", req: types.AnalyzeRequest{QuotationID: "Q-1", UserID: "u1"}, message: "document_ids array is required"},
		{name: "blank document id", req: types.AnalyzeRequest{DocumentIDs: []string{""}, QuotationID: "Q-1", UserID: "u1"}, message: "document_ids array is required"},
		{name: "no quotation", req: types.AnalyzeRequest{DocumentIDs: []string{"1"}, UserID: "u1"}, message: "quotation_id is required"},
		{name: "no user", req: types.AnalyzeRequest{DocumentIDs: []string{"1"}, QuotationID: "Q-1"}, message: "user_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.Analyze(context.Background(), tt.req)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.message, err.Error())
		})
	}
	assert.Zero(t, h.docs.calls)
}

func TestAnalyze_MissingCredentialFailsBeforeDocumentAccess(t *testing.T) {
	h := newHarness(t, doc("1", "CI.pdf", "commercial-invoice"))
	req := request("1")
	req.UserID = "someone-without-key"

	_, err := h.service.Analyze(context.Background(), req)

	var cfgErr *credentials.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, credentials.MissingKeyMessage, err.Error())
	assert.Zero(t, h.docs.calls)
	assert.Empty(t, h.client.Calls())
}

func TestAnalyze_NoDocumentsFound(t *testing.T) {
	h := newHarness(t, doc("1", "CI.pdf", "commercial-invoice"))
	req := request("1")
	req.QuotationID = "Q-other"

	_, err := h.service.Analyze(context.Background(), req)

	var notFound *DocumentsNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Failed to fetch documents", err.Error())
	assert.Empty(t, h.client.Calls())
}

func TestAnalyze_StoreError(t *testing.T) {
	h := newHarness(t)
	h.docs.err = errors.New("connection reset")

	_, err := h.service.Analyze(context.Background(), request("1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAnalyze_UnknownRule(t *testing.T) {
	h := newHarness(t, doc("1", "CI.pdf", "commercial-invoice"))
	req := request("1")
	id := uuid.New()
	req.RuleID = &id

	_, err := h.service.Analyze(context.Background(), req)

	var ruleErr *RuleNotFoundError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, id, ruleErr.RuleID)
}

func TestAnalyze_RuleAddsCriticalChecks(t *testing.T) {
	h := newHarness(t, doc("1", "CI.pdf", "commercial-invoice"), doc("2", "TK32.pdf", "tk-32"))
	ruleID := uuid.New()
	h.rules[ruleID] = &types.ComparisonRule{
		ID:                     ruleID,
		Name:                   "Export permits",
		ComparisonInstructions: "Pay special attention to {documentCount} permit numbers.",
		CriticalChecks:         []string{"Net Weight must match across documents"},
	}
	h.client.ContentFunc = func(context.Context, string, []llm.Attachment) (string, error) {
		return "## CI.pdf\nok\n## TK32.pdf\nok\n\n### Critical Check: Net Weight must match across documents\n**Status:** FAIL\n**Details:** 500kg vs 471kg\n**Issue:** Discrepancy of 29kg", nil
	}
	req := request("1", "2")
	req.RuleID = &ruleID

	resp, err := h.service.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"Net Weight must match across documents"}, resp.CriticalChecksList)
	require.Len(t, resp.CriticalChecksResults, 1)
	assert.Equal(t, "FAIL", resp.CriticalChecksResults[0].Status)

	prompt := h.client.CallsOfKind("content")[0].Prompt
	assert.Contains(t, prompt, "Pay special attention to 2 permit numbers.")
	assert.Contains(t, prompt, "1. Net Weight must match across documents")

	require.Len(t, h.history.saved, 1)
	assert.Equal(t, "FAIL", h.history.saved[0].Status)
	assert.Equal(t, &ruleID, h.history.saved[0].RuleID)
}

func TestAnalyze_HistoryFailureDoesNotFailRequest(t *testing.T) {
	h := newHarness(t, doc("1", "CI.pdf", "commercial-invoice"))
	h.history.err = errors.New("disk full")
	h.client.ContentFunc = func(context.Context, string, []llm.Attachment) (string, error) { return "## CI.pdf\nok", nil }

	resp, err := h.service.Analyze(context.Background(), request("1"))
	require.NoError(t, err)
	assert.Nil(t, resp.HistoryID)
}

func TestAnalyze_ClientFactoryError(t *testing.T) {
	h := newHarness(t, doc("1", "CI.pdf", "commercial-invoice"))
	h.factory.Err = errors.New("invalid key format")

	_, err := h.service.Analyze(context.Background(), request("1"))

	var cfgErr *credentials.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestAnalyze_PartialLookupKeepsFoundDocuments(t *testing.T) {
	h := newHarness(t, doc("1", "CI.pdf", "commercial-invoice"))
	h.client.ContentFunc = func(context.Context, string, []llm.Attachment) (string, error) { return "## CI.pdf\nok", nil }

	resp, err := h.service.Analyze(context.Background(), request("missing", "1", "1"))
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "1", resp.Results[0].DocumentID)
	assert.Equal(t, 1, resp.Results[0].SequenceOrder)
}

func TestAnalyze_MIMETypeFromFileName(t *testing.T) {
	h := newHarness(t, doc("1", "scan.JPG", "bill-of-lading"), doc("2", "label.webp", "other"))
	h.client.ContentFunc = func(context.Context, string, []llm.Attachment) (string, error) { return "", nil }

	_, err := h.service.Analyze(context.Background(), request("1", "2"))
	require.NoError(t, err)

	attachments := h.client.CallsOfKind("content")[0].Attachments
	require.Len(t, attachments, 2)
	assert.Equal(t, "image/jpeg", attachments[0].MIMEType)
	assert.Equal(t, "image/webp", attachments[1].MIMEType)
}
