package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jonathan/freight-doc-review/internal/resilience"
)

type stubClient struct {
	replies []error
	calls   atomic.Int32
	closed  bool
}

func (s *stubClient) next() error {
	n := int(s.calls.Add(1)) - 1
	if n < len(s.replies) {
		return s.replies[n]
	}
	return nil
}

func (s *stubClient) GenerateContent(context.Context, string, []Attachment, ModelTier) (string, error) {
	if err := s.next(); err != nil {
		return "", err
	}
	return "## Invoice_001.pdf", nil
}

func (s *stubClient) GenerateJSON(context.Context, string, []Attachment, ModelTier) (string, error) {
	if err := s.next(); err != nil {
		return "", err
	}
	return `{"hs_code": "8471.30"}`, nil
}

func (s *stubClient) GetModel(ModelTier) string { return "stub-model" }

func (s *stubClient) Close() error {
	s.closed = true
	return nil
}

type recordingObserver struct {
	ops  []string
	errs []error
}

func (r *recordingObserver) ObserveModelCall(operation, _ string, _ time.Duration, err error) {
	r.ops = append(r.ops, operation)
	r.errs = append(r.errs, err)
}

func TestCachingFactory_ReusesClientPerKey(t *testing.T) {
	created := 0
	factory := NewCachingFactory(nil, nil, WithNewClientFunc(func(context.Context, *Config, string) (Client, error) {
		created++
		return &stubClient{}, nil
	}))

	a1, err := factory.ForKey(context.Background(), "key-a")
	require.NoError(t, err)
	a2, err := factory.ForKey(context.Background(), "key-a")
	require.NoError(t, err)
	_, err = factory.ForKey(context.Background(), "key-b")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.Equal(t, 2, created)
	assert.NoError(t, factory.Close())
}

func TestCachingFactory_EvictsLeastRecentlyUsed(t *testing.T) {
	created := map[string]*stubClient{}
	factory := NewCachingFactory(nil, nil, WithMaxClients(2), WithNewClientFunc(func(_ context.Context, _ *Config, apiKey string) (Client, error) {
		c := &stubClient{}
		created[apiKey] = c
		return c, nil
	}))
	ctx := context.Background()

	for _, key := range []string{"key-a", "key-b", "key-a", "key-c"} {
		_, err := factory.ForKey(ctx, key)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, factory.Len())
	assert.True(t, created["key-b"].closed)
	assert.False(t, created["key-a"].closed)
	assert.False(t, created["key-c"].closed)

	evicted := created["key-b"]
	b2, err := factory.ForKey(ctx, "key-b")
	require.NoError(t, err)
	assert.NotSame(t, Client(evicted), b2)
	assert.True(t, created["key-a"].closed)

	require.NoError(t, factory.Close())
	assert.Equal(t, 0, factory.Len())
}

func TestWithMaxClients_IgnoresNonPositive(t *testing.T) {
	factory := NewCachingFactory(nil, nil, WithMaxClients(0))
	assert.Equal(t, DefaultMaxClients, factory.maxClients)
}

func TestCachingFactory_EmptyKey(t *testing.T) {
	factory := NewCachingFactory(nil, nil)
	_, err := factory.ForKey(context.Background(), "")
	assert.Error(t, err)
}

func TestCachingFactory_ConstructorError(t *testing.T) {
	factory := NewCachingFactory(nil, nil, WithNewClientFunc(func(context.Context, *Config, string) (Client, error) {
		return nil, errors.New("bad key")
	}))
	_, err := factory.ForKey(context.Background(), "key")
	assert.EqualError(t, err, "bad key")
}

func TestResilientClient_RetriesUnavailable(t *testing.T) {
	stub := &stubClient{replies: []error{status.Error(codes.Unavailable, "overloaded")}}
	observer := &recordingObserver{}
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	client := NewResilientClient(stub, exec, observer)

	out, err := client.GenerateJSON(context.Background(), "prompt", nil, TierStandard)
	require.NoError(t, err)
	assert.Equal(t, `{"hs_code": "8471.30"}`, out)
	assert.Equal(t, int32(2), stub.calls.Load())
	assert.Equal(t, []string{"generate_json"}, observer.ops)
	assert.Nil(t, observer.errs[0])
}

func TestResilientClient_DoesNotRetryInvalidArgument(t *testing.T) {
	stub := &stubClient{replies: []error{status.Error(codes.InvalidArgument, "bad blob")}}
	exec := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 3, RetryInitialBackoff: time.Millisecond})
	client := NewResilientClient(stub, exec, nil)

	_, err := client.GenerateContent(context.Background(), "prompt", nil, TierAdvanced)
	require.Error(t, err)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{name: "deadline", err: context.DeadlineExceeded, retryable: false, record: false},
		{name: "http 429", err: &googleapi.Error{Code: 429}, retryable: true, record: true},
		{name: "http 400", err: &googleapi.Error{Code: 400}, retryable: false, record: false},
		{name: "grpc resource exhausted", err: status.Error(codes.ResourceExhausted, "quota"), retryable: true, record: true},
		{name: "grpc permission denied", err: status.Error(codes.PermissionDenied, "key"), retryable: false, record: false},
		{name: "plain error", err: errors.New("no candidates in response"), retryable: false, record: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class := ClassifyError(tt.err)
			assert.Equal(t, tt.retryable, class.Retryable)
			assert.Equal(t, tt.record, class.RecordFailure)
		})
	}
}
