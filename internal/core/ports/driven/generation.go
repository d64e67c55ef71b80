package driven

import "context"

// GenerationService produces text from a prompt.
// The hosted model is stateless, rate-limited and non-idempotent (calls
// may bill); it is never retried internally. Callers may apply their
// own bounded retry if they can de-duplicate the cost.
type GenerationService interface {
	// Generate produces a completion for the given prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the generation model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
