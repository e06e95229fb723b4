package llm

import "context"

// ProtectedGenerator wraps a TextGenerator with a circuit breaker so a
// failing provider is backed off instead of hammered. Rate-limit errors
// pass through untouched for the caller's retry policy to handle.
type ProtectedGenerator struct {
	inner   TextGenerator
	breaker *CircuitBreaker
}

var _ TextGenerator = (*ProtectedGenerator)(nil)

// Protect wraps gen with a default-configured circuit breaker.
func Protect(gen TextGenerator) *ProtectedGenerator {
	return &ProtectedGenerator{inner: gen, breaker: NewCircuitBreaker()}
}

// Complete runs the provider call through the breaker. When the circuit
// is open it fails fast with ErrCircuitOpen.
func (p *ProtectedGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	return p.breaker.Execute(ctx, func() (string, error) {
		return p.inner.Complete(ctx, prompt)
	})
}

// GetModel reports the wrapped provider's model.
func (p *ProtectedGenerator) GetModel() string {
	return p.inner.GetModel()
}

// BreakerState exposes the breaker state for health reporting.
func (p *ProtectedGenerator) BreakerState() string {
	return p.breaker.State()
}
