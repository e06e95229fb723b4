package llm

import (
	"context"
	"errors"
	"fmt"
)

// TextGenerator is the interface for the generative text-completion
// collaborator used as the query router's fallback.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// ErrRateLimited signals a retryable provider rejection (HTTP 429).
// The router's retry policy waits and retries on this error only.
var ErrRateLimited = errors.New("llm: rate limited")

// ProviderError is a non-retryable provider failure: the current attempt
// is fatal and the router aborts immediately.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm: %s returned status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("llm: %s: %s", e.Provider, e.Message)
}
