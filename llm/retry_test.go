// ABOUTME: Tests for retry policy backoff math and retryability classification.
package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"
)

func TestCalculateDelay_ExponentialGrowth(t *testing.T) {
	p := RetryPolicy{
		BaseDelay:         time.Second,
		MaxDelay:          time.Minute,
		BackoffMultiplier: 2.0,
	}

	if got := p.CalculateDelay(0); got != time.Second {
		t.Errorf("attempt 0 delay = %v, want 1s", got)
	}
	if got := p.CalculateDelay(2); got != 4*time.Second {
		t.Errorf("attempt 2 delay = %v, want 4s", got)
	}
}

func TestCalculateDelay_CappedAtMax(t *testing.T) {
	p := RetryPolicy{
		BaseDelay:         time.Second,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 10.0,
	}
	if got := p.CalculateDelay(5); got != 5*time.Second {
		t.Errorf("delay = %v, want capped at 5s", got)
	}
}

func TestCalculateDelay_JitterStaysInRange(t *testing.T) {
	p := RetryPolicy{
		BaseDelay:         time.Second,
		MaxDelay:          time.Minute,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
	for i := 0; i < 50; i++ {
		if got := p.CalculateDelay(1); got < 0 || got > 2*time.Second {
			t.Fatalf("jittered delay %v outside [0, 2s]", got)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	p := RetryPolicy{MaxRetries: 2}

	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{"nil error", nil, 0, false},
		{"rate limit", &openai.Error{StatusCode: 429}, 0, true},
		{"server error", &openai.Error{StatusCode: 503}, 1, true},
		{"client error", &openai.Error{StatusCode: 400}, 0, false},
		{"auth error", &openai.Error{StatusCode: 401}, 0, false},
		{"plain error", errors.New("boom"), 0, false},
		{"exhausted", &openai.Error{StatusCode: 429}, 2, false},
		{"canceled", context.Canceled, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ShouldRetry(tt.err, tt.attempt); got != tt.want {
				t.Errorf("ShouldRetry(%v, %d) = %v, want %v", tt.err, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetry_SucceedsAfterTransientFailure(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 1}

	calls := 0
	err := Retry(context.Background(), p, func() error {
		calls++
		if calls < 3 {
			return &openai.Error{StatusCode: 500}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry returned %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_NonRetryableFailsFast(t *testing.T) {
	p := DefaultRetryPolicy()

	calls := 0
	boom := errors.New("boom")
	err := Retry(context.Background(), p, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
