package gateway_test

import (
	"context"
	"sync/atomic"

	"github.com/compresr/chat-gateway/external"
	"github.com/compresr/chat-gateway/internal/adapters"
)

const (
	titanModel      = "amazon.titan-text-lite-v1"
	messagesModel   = "anthropic.claude-3-haiku-20240307-v1:0"
	completionModel = "anthropic.claude-instant-v1"
)

func providerFor(modelID string) adapters.ProviderConfig {
	return adapters.ProviderConfig{
		ProviderID:  modelID,
		ModelID:     modelID,
		Temperature: 0.7,
		TopP:        0.9,
	}
}

// fakeInvoker records calls and delegates to fn.
type fakeInvoker struct {
	calls atomic.Int32
	last  atomic.Pointer[external.InvokeInput]
	fn    func(ctx context.Context, in *external.InvokeInput) (*external.InvokeOutput, error)
}

func (f *fakeInvoker) Invoke(ctx context.Context, in *external.InvokeInput) (*external.InvokeOutput, error) {
	f.calls.Add(1)
	f.last.Store(in)
	return f.fn(ctx, in)
}

func respondWith(body string) *fakeInvoker {
	return &fakeInvoker{fn: func(context.Context, *external.InvokeInput) (*external.InvokeOutput, error) {
		return &external.InvokeOutput{Body: []byte(body), StatusCode: 200, RequestID: "backend-req-1"}, nil
	}}
}

func failWith(err error) *fakeInvoker {
	return &fakeInvoker{fn: func(context.Context, *external.InvokeInput) (*external.InvokeOutput, error) {
		return nil, err
	}}
}

// blockingInvoker waits for the deadline the way a real transport does.
func blockingInvoker() *fakeInvoker {
	return &fakeInvoker{fn: func(ctx context.Context, _ *external.InvokeInput) (*external.InvokeOutput, error) {
		<-ctx.Done()
		return nil, &external.InvokeError{Message: ctx.Err().Error(), Err: ctx.Err()}
	}}
}
