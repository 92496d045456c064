package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// BackoffFunc returns the wait before retrying after the given 1-based
// failed attempt.
type BackoffFunc func(attempt int) time.Duration

// ExpBackoff waits 2^attempt seconds: 2s after the first failure, then 4s,
// then 8s.
func ExpBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// Retry runs op up to maxAttempts times, waiting backoff(attempt) between
// attempts. The final attempt's error is returned unwrapped so callers can
// decide whether exhaustion is fatal. Context cancellation aborts the wait
// and stops retrying.
func Retry[T any](ctx context.Context, maxAttempts int, backoff BackoffFunc, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	return zero, lastErr
}

// RetryConfig configures the retry wrapper.
type RetryConfig struct {
	MaxAttempts int           // Total attempts, including the first (default 3)
	Backoff     BackoffFunc   // Wait between attempts (default ExpBackoff)
	Timeout     time.Duration // Per-attempt timeout (0 = none)
}

// DefaultRetryConfig returns the standard policy: three attempts with
// exponential backoff.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		Backoff:     ExpBackoff,
	}
}

// RetryProvider wraps a Provider with the shared retry policy. Both the
// embedding path and the completion path retry identically; whether
// exhaustion is fatal is the caller's decision.
type RetryProvider struct {
	inner  Provider
	config *RetryConfig
}

// NewRetryProvider wraps an existing provider with retry logic.
func NewRetryProvider(inner Provider, config *RetryConfig) *RetryProvider {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Backoff == nil {
		config.Backoff = ExpBackoff
	}
	return &RetryProvider{inner: inner, config: config}
}

// Name returns the underlying provider name.
func (r *RetryProvider) Name() string { return r.inner.Name() }

// Complete sends a prompt, retrying on any failure.
func (r *RetryProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	resp, err := Retry(ctx, r.config.MaxAttempts, r.config.Backoff, func(ctx context.Context) (*Response, error) {
		attemptCtx, cancel := r.withTimeout(ctx)
		defer cancel()
		return r.inner.Complete(attemptCtx, prompt, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("complete after %d attempts: %w", r.config.MaxAttempts, err)
	}
	return resp, nil
}

// Embed requests embeddings, retrying on any failure.
func (r *RetryProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := Retry(ctx, r.config.MaxAttempts, r.config.Backoff, func(ctx context.Context) ([][]float32, error) {
		attemptCtx, cancel := r.withTimeout(ctx)
		defer cancel()
		return r.inner.Embed(attemptCtx, texts)
	})
	if err != nil {
		return nil, fmt.Errorf("embed after %d attempts: %w", r.config.MaxAttempts, err)
	}
	return embeddings, nil
}

func (r *RetryProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.Timeout > 0 {
		return context.WithTimeout(ctx, r.config.Timeout)
	}
	return context.WithCancel(ctx)
}
