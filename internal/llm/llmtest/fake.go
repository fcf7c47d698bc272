// Package llmtest provides a scriptable in-memory llm.Client for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/jonathan/freight-doc-review/internal/llm"
)

// Call records one request made to a FakeClient.
type Call struct {
	Kind        string // "content" or "json"
	Prompt      string
	Attachments []llm.Attachment
	Tier        llm.ModelTier
}

// ReplyFunc produces the reply for one call.
type ReplyFunc func(ctx context.Context, prompt string, attachments []llm.Attachment) (string, error)

// FakeClient implements llm.Client. Unset reply funcs return an error.
type FakeClient struct {
	ContentFunc ReplyFunc
	JSONFunc    ReplyFunc

	mu    sync.Mutex
	calls []Call
}

// GenerateContent implements llm.Client.
func (f *FakeClient) GenerateContent(ctx context.Context, prompt string, attachments []llm.Attachment, tier llm.ModelTier) (string, error) {
	f.record(Call{Kind: "content", Prompt: prompt, Attachments: attachments, Tier: tier})
	if f.ContentFunc == nil {
		return "", errors.New("llmtest: no content reply configured")
	}
	return f.ContentFunc(ctx, prompt, attachments)
}

// GenerateJSON implements llm.Client.
func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, attachments []llm.Attachment, tier llm.ModelTier) (string, error) {
	f.record(Call{Kind: "json", Prompt: prompt, Attachments: attachments, Tier: tier})
	if f.JSONFunc == nil {
		return "", errors.New("llmtest: no json reply configured")
	}
	return f.JSONFunc(ctx, prompt, attachments)
}

// GetModel implements llm.Client.
func (f *FakeClient) GetModel(tier llm.ModelTier) string {
	return "fake-" + string(tier)
}

// Close implements llm.Client.
func (f *FakeClient) Close() error { return nil }

// Calls returns a copy of the recorded calls.
func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsOfKind returns recorded calls of the given kind.
func (f *FakeClient) CallsOfKind(kind string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeClient) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

// Factory implements llm.ClientFactory, always handing out Client and remembering the keys it saw.
type Factory struct {
	Client llm.Client
	Err    error

	mu   sync.Mutex
	keys []string
}

// ForKey implements llm.ClientFactory.
func (f *Factory) ForKey(_ context.Context, apiKey string) (llm.Client, error) {
	f.mu.Lock()
	f.keys = append(f.keys, apiKey)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Client, nil
}

// Keys returns the API keys requested so far.
func (f *Factory) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}
