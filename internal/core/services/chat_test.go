package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat-cli/internal/adapters/driven/storage/memory"
	"github.com/docuchat/docuchat-cli/internal/adapters/driven/vector"
	"github.com/docuchat/docuchat-cli/internal/core/domain"
)

// mapEmbedder returns fixed vectors for known texts.
type mapEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (e *mapEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	vec, ok := e.vectors[text]
	if !ok {
		return []float32{0, 0, 1}, nil
	}
	return vec, nil
}

func (e *mapEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *mapEmbedder) Dimensions() int   { return 3 }
func (e *mapEmbedder) ModelName() string { return "map-embed" }
func (e *mapEmbedder) Close() error      { return nil }

// fakeGenerator records the prompt and returns a canned answer.
type fakeGenerator struct {
	answer string
	err    error
	prompt string
	calls  int
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *fakeGenerator) ModelName() string { return "fake-gen" }
func (g *fakeGenerator) Close() error      { return nil }

// chatFixture indexes three chunks of one document with embeddings
// arranged so "query" ranks them A > B > C.
type chatFixture struct {
	svc   *ChatService
	store *memory.DocumentStore
	idx   *vector.Index
	gen   *fakeGenerator
	emb   *mapEmbedder
}

func newChatFixture(t *testing.T, opts ...ChatOption) *chatFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewDocumentStore()
	idx := vector.New()
	emb := &mapEmbedder{vectors: map[string][]float32{
		"query": {1, 0, 0},
	}}
	gen := &fakeGenerator{answer: "  the answer [S1]  "}

	doc := &domain.Document{ID: "doc-1", Filename: "paper.pdf", IngestedAt: time.Now().UTC()}
	require.NoError(t, store.PutDocument(ctx, doc))

	chunks := []domain.Chunk{
		{ID: "doc-1:0", DocumentID: "doc-1", Position: 0, Content: "alpha passage", Start: 0, End: 13},
		{ID: "doc-1:1", DocumentID: "doc-1", Position: 1, Content: "beta passage", Start: 10, End: 22},
		{ID: "doc-1:2", DocumentID: "doc-1", Position: 2, Content: "gamma passage", Start: 20, End: 33},
	}
	require.NoError(t, store.SaveChunks(ctx, chunks))

	require.NoError(t, idx.Insert(ctx, "doc-1:0", []float32{1, 0, 0}))
	require.NoError(t, idx.Insert(ctx, "doc-1:1", []float32{0.9, 0.4, 0}))
	require.NoError(t, idx.Insert(ctx, "doc-1:2", []float32{0.2, 1, 0}))

	return &chatFixture{
		svc:   NewChatService(store, emb, idx, gen, opts...),
		store: store,
		idx:   idx,
		gen:   gen,
		emb:   emb,
	}
}

func TestRetrieve_OrderedByScore(t *testing.T) {
	f := newChatFixture(t)

	got, err := f.svc.Retrieve(context.Background(), "query", domain.RetrievalOptions{K: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "doc-1:0", got[0].Chunk.ID)
	assert.Equal(t, "doc-1:1", got[1].Chunk.ID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestRetrieve_EmptyIndexSkipsEmbedding(t *testing.T) {
	store := memory.NewDocumentStore()
	emb := &mapEmbedder{}
	svc := NewChatService(store, emb, vector.New(), &fakeGenerator{})

	_, err := svc.Retrieve(context.Background(), "anything", domain.RetrievalOptions{})
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
	assert.Zero(t, emb.calls, "embedding service must not be called on an empty index")
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.Retrieve(context.Background(), "   ", domain.RetrievalOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRetrieve_SkipsStaleIndexEntries(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	// Chunks gone from the store but still present in the index.
	require.NoError(t, f.store.DeleteChunks(ctx, "doc-1"))

	got, err := f.svc.Retrieve(ctx, "query", domain.RetrievalOptions{K: 2})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieve_DocumentFilter(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.PutDocument(ctx, &domain.Document{ID: "doc-2", Filename: "other.pdf"}))
	require.NoError(t, f.store.SaveChunks(ctx, []domain.Chunk{
		{ID: "doc-2:0", DocumentID: "doc-2", Position: 0, Content: "other passage"},
	}))
	require.NoError(t, f.idx.Insert(ctx, "doc-2:0", []float32{1, 0.1, 0}))

	got, err := f.svc.Retrieve(ctx, "query", domain.RetrievalOptions{
		K:           3,
		DocumentIDs: []string{"doc-2"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "doc-2:0", got[0].Chunk.ID)
}

func TestAsk(t *testing.T) {
	f := newChatFixture(t)

	answer, err := f.svc.Ask(context.Background(), "query", domain.RetrievalOptions{})
	require.NoError(t, err)

	assert.Equal(t, "the answer [S1]", answer.Text, "answer text is trimmed")
	require.Len(t, answer.Citations, 3)
	assert.Equal(t, "S1", answer.Citations[0].Marker)
	assert.Equal(t, "doc-1:0", answer.Citations[0].ChunkID)
	assert.Equal(t, "paper.pdf", answer.Citations[0].Filename)

	// The prompt carries the question, the passages and their markers.
	assert.Contains(t, f.gen.prompt, "Question: query")
	assert.Contains(t, f.gen.prompt, "[S1] alpha passage")
	assert.Contains(t, f.gen.prompt, "[S2] beta passage")
	assert.Contains(t, f.gen.prompt, NotInContextAnswer)
}

func TestAsk_HonorsRequestedK(t *testing.T) {
	f := newChatFixture(t)

	answer, err := f.svc.Ask(context.Background(), "query", domain.RetrievalOptions{K: 1})
	require.NoError(t, err)

	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "doc-1:0", answer.Citations[0].ChunkID)
	assert.Contains(t, f.gen.prompt, "alpha passage")
	assert.NotContains(t, f.gen.prompt, "beta passage")
}

func TestAsk_ContextBudgetStopsAtFirstOversize(t *testing.T) {
	// "alpha passage" is 13 runes, about 4 tokens. Budget of 5 fits
	// exactly one chunk and excludes the rest whole.
	f := newChatFixture(t, WithMaxContextTokens(5))

	answer, err := f.svc.Ask(context.Background(), "query", domain.RetrievalOptions{})
	require.NoError(t, err)

	require.Len(t, answer.Citations, 1)
	assert.Contains(t, f.gen.prompt, "alpha passage")
	assert.NotContains(t, f.gen.prompt, "beta passage")
}

func TestAsk_NothingUsableSkipsGeneration(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.DeleteChunks(ctx, "doc-1"))

	answer, err := f.svc.Ask(ctx, "query", domain.RetrievalOptions{})
	require.NoError(t, err)
	assert.Equal(t, NotInContextAnswer, answer.Text)
	assert.Empty(t, answer.Citations)
	assert.Zero(t, f.gen.calls, "generation must not run without context")
}

func TestAsk_EmptyIndex(t *testing.T) {
	svc := NewChatService(memory.NewDocumentStore(), &mapEmbedder{}, vector.New(), &fakeGenerator{})

	_, err := svc.Ask(context.Background(), "query", domain.RetrievalOptions{})
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
}

func TestAsk_GenerationFailure(t *testing.T) {
	f := newChatFixture(t)
	f.gen.err = errors.New("model overloaded")

	_, err := f.svc.Ask(context.Background(), "query", domain.RetrievalOptions{})

	var genErr *domain.GenerationServiceError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "generate answer", genErr.Op)
}

func TestBuildPrompt_MarkersMatchCitations(t *testing.T) {
	included := []domain.RetrievedChunk{
		{Chunk: domain.Chunk{ID: "d:0", Content: "first"}},
		{Chunk: domain.Chunk{ID: "d:1", Content: "second"}},
	}
	citations := []domain.Citation{
		{Marker: "S1", ChunkID: "d:0"},
		{Marker: "S2", ChunkID: "d:1"},
	}

	prompt := buildPrompt("q", included, citations)
	assert.True(t, strings.Index(prompt, "[S1] first") < strings.Index(prompt, "[S2] second"))
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
}
