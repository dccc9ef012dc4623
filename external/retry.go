package external

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryPolicy bounds retries of transient backend failures.
// MaxAttempts <= 1 disables retrying.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

type retryInvoker struct {
	next   Invoker
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps inv with a bounded exponential-jitter retry policy.
// Only Retryable errors are repeated, and never past ctx's deadline.
func WithRetry(inv Invoker, policy RetryPolicy) Invoker {
	if policy.MaxAttempts <= 1 {
		return inv
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 200 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 5 * time.Second
	}
	return &retryInvoker{next: inv, policy: policy, sleep: sleepContext}
}

// Invoke implements Invoker.
func (r *retryInvoker) Invoke(ctx context.Context, in *InvokeInput) (*InvokeOutput, error) {
	for attempt := 1; ; attempt++ {
		out, err := r.next.Invoke(ctx, in)
		if err == nil || attempt >= r.policy.MaxAttempts || !Retryable(err) || ctx.Err() != nil {
			return out, err
		}

		delay := r.backoff(attempt)
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Str("model", in.ModelID).
			Msg("retrying backend call")

		if r.sleep(ctx, delay) != nil {
			return nil, err
		}
	}
}

// backoff returns base*2^(attempt-1) plus up to one base of jitter, capped.
func (r *retryInvoker) backoff(attempt int) time.Duration {
	d := r.policy.BaseDelay << uint(attempt-1)
	d += time.Duration(rand.Int63n(int64(r.policy.BaseDelay)))
	if d > r.policy.MaxDelay {
		d = r.policy.MaxDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
