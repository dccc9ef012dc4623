// Package external performs the backend model call.
//
// DESIGN: The orchestrator only sees the Invoker interface. Two
// implementations exist:
//   - SDKInvoker:  aws-sdk-go-v2 bedrockruntime InvokeModel (default)
//   - HTTPInvoker: raw POST {endpoint}/model/{id}/invoke, optionally signed
//     with SigV4 by SigningTransport (proxies, VPC endpoints, tests)
//
// Both make exactly one attempt. Retries are opt-in via WithRetry.
// Failures are returned as *InvokeError carrying whatever status code and
// request id the backend reported.
package external

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultTimeout for backend calls.
	DefaultTimeout = 60 * time.Second

	// maxResponseSize prevents OOM on unexpectedly large API responses (10MB).
	maxResponseSize = 10 * 1024 * 1024

	// maxErrorBodyLen limits error body in error messages to avoid log bloat.
	maxErrorBodyLen = 500
)

// InvokeInput carries the parameters for one InvokeModel call.
type InvokeInput struct {
	ModelID     string
	Body        []byte
	ContentType string
	Accept      string
}

// InvokeOutput is a successful backend response.
type InvokeOutput struct {
	Body       []byte
	StatusCode int
	RequestID  string
}

// Invoker sends a payload to the backend once.
type Invoker interface {
	Invoke(ctx context.Context, in *InvokeInput) (*InvokeOutput, error)
}

// InvokeError is a failed backend call. StatusCode is 0 when the backend
// never produced an HTTP response (timeout, connection reset, DNS).
type InvokeError struct {
	StatusCode int
	RequestID  string
	Code       string // Backend error type, e.g. "ThrottlingException"
	Message    string // Backend-reported message, or the transport error text
	Err        error
}

// Error implements the error interface.
func (e *InvokeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bedrock returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("bedrock request failed: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *InvokeError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call failed because a deadline expired.
func (e *InvokeError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Retryable reports whether a failed call may succeed if repeated:
// throttling, 5xx, or a transport failure that was not a cancellation.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ie *InvokeError
	if !errors.As(err, &ie) {
		return false
	}
	switch {
	case ie.StatusCode == 0:
		return true
	case ie.StatusCode == 429:
		return true
	case ie.StatusCode >= 500:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}
