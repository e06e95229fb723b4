package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tabletalk/tabletalk/internal/llm"
)

// RetryPolicy bounds the generative-fallback attempts. A rate-limited
// attempt waits Backoff and retries; any other failure aborts immediately.
// Sleep is injectable so tests run without real waiting.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	Sleep       func(time.Duration)
}

// DefaultRetryPolicy matches the pipeline contract: 3 attempts with a
// fixed 2-second backoff between rate-limited attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 2 * time.Second}
}

// Do invokes fn up to MaxAttempts times. It retries only when the error
// is llm.ErrRateLimited, sleeping Backoff before each retry. Context
// cancellation aborts between attempts.
func (p RetryPolicy) Do(ctx context.Context, fn func() (string, error)) (string, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !errors.Is(err, llm.ErrRateLimited) {
			return "", err
		}
		if attempt < attempts {
			sleep(p.Backoff)
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}
	}
	return "", &MaxRetriesError{Attempts: attempts, LastErr: lastErr}
}

// MaxRetriesError reports that every attempt was rate limited.
type MaxRetriesError struct {
	Attempts int
	LastErr  error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("max retries exceeded after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *MaxRetriesError) Unwrap() error {
	return e.LastErr
}
