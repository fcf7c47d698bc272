package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jonathan/freight-doc-review/internal/resilience"
)

// Observer receives the outcome of every model call.
type Observer interface {
	ObserveModelCall(operation, model string, duration time.Duration, err error)
}

// ResilientClient decorates a Client with retries, circuit breaking and call observation.
type ResilientClient struct {
	inner    Client
	executor *resilience.Executor
	observer Observer
}

// NewResilientClient wraps inner. Either executor or observer may be nil.
func NewResilientClient(inner Client, executor *resilience.Executor, observer Observer) *ResilientClient {
	return &ResilientClient{inner: inner, executor: executor, observer: observer}
}

// GenerateContent implements Client.
func (c *ResilientClient) GenerateContent(ctx context.Context, prompt string, attachments []Attachment, tier ModelTier) (string, error) {
	return c.call(ctx, "generate_content", tier, func(ctx context.Context) (string, error) {
		return c.inner.GenerateContent(ctx, prompt, attachments, tier)
	})
}

// GenerateJSON implements Client.
func (c *ResilientClient) GenerateJSON(ctx context.Context, prompt string, attachments []Attachment, tier ModelTier) (string, error) {
	return c.call(ctx, "generate_json", tier, func(ctx context.Context) (string, error) {
		return c.inner.GenerateJSON(ctx, prompt, attachments, tier)
	})
}

// GetModel implements Client.
func (c *ResilientClient) GetModel(tier ModelTier) string {
	return c.inner.GetModel(tier)
}

// Close implements Client.
func (c *ResilientClient) Close() error {
	return c.inner.Close()
}

func (c *ResilientClient) call(ctx context.Context, kind string, tier ModelTier, fn func(context.Context) (string, error)) (string, error) {
	model := c.inner.GetModel(tier)
	operation := "gemini." + kind + "." + model
	start := time.Now()

	var out string
	var err error
	if c.executor == nil {
		out, err = fn(ctx)
	} else {
		err = c.executor.Execute(ctx, operation, func(ctx context.Context) error {
			var callErr error
			out, callErr = fn(ctx)
			return callErr
		}, ClassifyError)
	}

	if c.observer != nil {
		c.observer.ObserveModelCall(kind, model, time.Since(start), err)
	}
	return out, err
}

// ClassifyError decides whether a Gemini failure is worth retrying.
// Quota, overload and transport errors are retried; bad requests and auth failures are not.
func ClassifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyHTTPStatus(apiErr.Code)
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.Aborted, codes.DeadlineExceeded:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func classifyHTTPStatus(code int) resilience.ErrorClassification {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
}
