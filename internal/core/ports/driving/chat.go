package driving

import (
	"context"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
)

// ChatService answers natural-language questions over the ingested corpus.
type ChatService interface {
	// Ask retrieves relevant passages per opts and synthesises an answer
	// with citations. Fails with domain.ErrEmptyIndex when nothing has
	// been ingested yet; the generation model is never called in that
	// case.
	Ask(ctx context.Context, question string, opts domain.RetrievalOptions) (*domain.Answer, error)

	// Retrieve returns the ordered context passages for a query
	// without invoking generation.
	Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.RetrievedChunk, error)
}
