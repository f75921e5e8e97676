// ABOUTME: Retry logic with exponential backoff and jitter for LLM API calls.
// ABOUTME: Retries rate-limit and server errors; everything else fails immediately.
package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/openai/openai-go"
)

// RetryPolicy configures retry behavior for API calls.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts (not counting the
	// initial call).
	MaxRetries int

	// BaseDelay is the initial delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay is the upper bound on the delay between retries.
	MaxDelay time.Duration

	// BackoffMultiplier controls exponential growth of the delay.
	BackoffMultiplier float64

	// Jitter randomizes delays to avoid thundering herds.
	Jitter bool
}

// DefaultRetryPolicy returns the default policy: 2 retries, 1s base delay,
// 60s max delay, 2x backoff, jitter enabled.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		BaseDelay:         time.Second,
		MaxDelay:          60 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// CalculateDelay computes the backoff delay for a given attempt, capped at
// MaxDelay. With Jitter, the delay is randomized between 0 and the computed
// value (full jitter).
func (p RetryPolicy) CalculateDelay(attempt int) time.Duration {
	delayFloat := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if delayFloat > float64(p.MaxDelay) {
		delayFloat = float64(p.MaxDelay)
	}

	delay := time.Duration(delayFloat)
	if p.Jitter && delay > 0 {
		delay = time.Duration(rand.Int64N(int64(delay) + 1))
	}
	return delay
}

// ShouldRetry reports whether the call should be retried for err at the given
// attempt count.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxRetries {
		return false
	}
	return isRetryable(err)
}

// isRetryable treats 429 and 5xx API responses as transient. Context
// cancellation and client-side errors are final.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}

// Retry executes fn under the policy, backing off between attempts. The
// context cancels waiting between retries.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !policy.ShouldRetry(lastErr, attempt) {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(policy.CalculateDelay(attempt)):
		}
	}
}
