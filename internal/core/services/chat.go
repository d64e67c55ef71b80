package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
	"github.com/docuchat/docuchat-cli/internal/core/ports/driven"
	"github.com/docuchat/docuchat-cli/internal/core/ports/driving"
	"github.com/docuchat/docuchat-cli/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// Default retrieval parameters.
const (
	DefaultRetrievalK      = 4
	DefaultOverfetchFactor = 3
	DefaultMaxContextTok   = 3000
)

// NotInContextAnswer is the fixed reply when generation is skipped
// because retrieval produced nothing usable.
const NotInContextAnswer = "answer is not available in the context"

// ChatService answers questions over the ingested corpus using
// retrieval-augmented generation.
type ChatService struct {
	docStore driven.DocumentStore
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	gen      driven.GenerationService

	k                int
	overfetchFactor  int
	maxContextTokens int
}

// ChatOption configures the chat service.
type ChatOption func(*ChatService)

// WithRetrievalK sets how many passages a query returns.
func WithRetrievalK(k int) ChatOption {
	return func(s *ChatService) {
		if k > 0 {
			s.k = k
		}
	}
}

// WithOverfetchFactor widens candidate retrieval so stale index hits
// can be dropped and K results still remain.
func WithOverfetchFactor(f int) ChatOption {
	return func(s *ChatService) {
		if f >= 1 {
			s.overfetchFactor = f
		}
	}
}

// WithMaxContextTokens caps the assembled prompt context.
func WithMaxContextTokens(n int) ChatOption {
	return func(s *ChatService) {
		if n > 0 {
			s.maxContextTokens = n
		}
	}
}

// NewChatService creates a new chat service.
func NewChatService(
	docStore driven.DocumentStore,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	gen driven.GenerationService,
	opts ...ChatOption,
) *ChatService {
	s := &ChatService{
		docStore:         docStore,
		embedder:         embedder,
		index:            index,
		gen:              gen,
		k:                DefaultRetrievalK,
		overfetchFactor:  DefaultOverfetchFactor,
		maxContextTokens: DefaultMaxContextTok,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve returns the top passages for a query, descending by
// similarity. The index is consulted before the embedding service, so
// an empty index never spends an embedding call.
func (s *ChatService) Retrieve(
	ctx context.Context, query string, opts domain.RetrievalOptions,
) ([]domain.RetrievedChunk, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}

	if s.index.Stats().Entries == 0 {
		logger.Debug("Vector index is empty")
		return nil, domain.ErrEmptyIndex
	}

	k := opts.K
	if k <= 0 {
		k = s.k
	}

	// Overfetch so that hits pointing at deleted or filtered documents
	// can be dropped without going below k.
	fetchK := k * s.overfetchFactor
	logger.Debug("K=%d, fetching %d candidates", k, fetchK)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, vec, fetchK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector search: %d hits", len(hits))

	var allowed map[string]bool
	if len(opts.DocumentIDs) > 0 {
		allowed = make(map[string]bool, len(opts.DocumentIDs))
		for _, id := range opts.DocumentIDs {
			allowed[id] = true
		}
	}

	results := make([]domain.RetrievedChunk, 0, k)
	for _, hit := range hits {
		chunk, err := s.docStore.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Stale index entry, e.g. racing a delete. Skip.
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
		}
		if allowed != nil && !allowed[chunk.DocumentID] {
			continue
		}

		results = append(results, domain.RetrievedChunk{Chunk: *chunk, Score: hit.Score})
		if len(results) == k {
			break
		}
	}

	logger.Info("Retrieved %d passages", len(results))
	return results, nil
}

// Ask retrieves context for the question per opts and synthesises a
// cited answer. When nothing relevant is found, generation is skipped
// and the fixed not-in-context answer is returned.
func (s *ChatService) Ask(ctx context.Context, question string, opts domain.RetrievalOptions) (*domain.Answer, error) {
	retrieved, err := s.Retrieve(ctx, question, opts)
	if err != nil {
		return nil, err
	}
	if len(retrieved) == 0 {
		return &domain.Answer{Text: NotInContextAnswer}, nil
	}

	included, citations := s.assembleContext(ctx, retrieved)
	if len(included) == 0 {
		return &domain.Answer{Text: NotInContextAnswer}, nil
	}

	prompt := buildPrompt(question, included, citations)
	logger.Debug("Prompt: ~%d tokens, %d passages", estimateTokens(prompt), len(included))

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, &domain.GenerationServiceError{Op: "generate answer", Err: err}
	}

	return &domain.Answer{
		Text:      strings.TrimSpace(text),
		Citations: citations,
	}, nil
}

// assembleContext selects whole chunks, best first, until the token
// budget is exhausted. The first chunk that does not fit ends the
// selection; chunks are never truncated mid-text.
func (s *ChatService) assembleContext(
	ctx context.Context, retrieved []domain.RetrievedChunk,
) ([]domain.RetrievedChunk, []domain.Citation) {
	var included []domain.RetrievedChunk
	var citations []domain.Citation
	used := 0

	for _, rc := range retrieved {
		cost := estimateTokens(rc.Chunk.Content)
		if used+cost > s.maxContextTokens {
			logger.Debug("Context budget reached at %d/%d tokens, stopping", used, s.maxContextTokens)
			break
		}
		used += cost
		included = append(included, rc)

		marker := fmt.Sprintf("S%d", len(included))
		citation := domain.Citation{
			Marker:     marker,
			ChunkID:    rc.Chunk.ID,
			DocumentID: rc.Chunk.DocumentID,
			Start:      rc.Chunk.Start,
			End:        rc.Chunk.End,
		}
		if doc, err := s.docStore.GetDocument(ctx, rc.Chunk.DocumentID); err == nil {
			citation.Filename = doc.Filename
		}
		citations = append(citations, citation)
	}

	return included, citations
}

// buildPrompt renders the grounded question-answering prompt. Each
// passage carries a [S#] marker the model can cite.
func buildPrompt(question string, included []domain.RetrievedChunk, citations []domain.Citation) string {
	var sb strings.Builder
	sb.WriteString("Answer the question as detailed as possible from the provided context. ")
	sb.WriteString("If the answer is not in the provided context just say, \"")
	sb.WriteString(NotInContextAnswer)
	sb.WriteString("\"; don't provide a wrong answer. ")
	sb.WriteString("Cite the passages you use with their [S#] markers.\n\nContext:\n")

	for i, rc := range included {
		fmt.Fprintf(&sb, "[%s] %s\n\n", citations[i].Marker, rc.Chunk.Content)
	}

	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

// estimateTokens approximates the token count of text.
// Rough estimate: 4 characters per token.
func estimateTokens(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}
