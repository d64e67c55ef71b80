package driven

import (
	"context"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
)

// VectorIndex is the durable, queryable store of chunk vectors.
//
// The vector dimension is fixed by the first insert; later inserts with
// a different length fail with domain.ErrDimensionMismatch. Reads may
// run concurrently; writes are exclusive and readers always observe
// either the pre- or post-mutation state, never a torn one.
type VectorIndex interface {
	// Insert adds a (chunk ID, vector) entry.
	// Fails with domain.ErrDuplicateID if the ID is already present.
	Insert(ctx context.Context, chunkID string, vec []float32) error

	// DeleteByDocument removes every entry belonging to the document.
	// Idempotent: deleting an absent document is a no-op.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Search returns the k entries most similar to the query vector,
	// descending by cosine similarity, ties broken by insertion order.
	// k <= 0 fails with domain.ErrInvalidArgument. Fewer than k entries
	// returns all available.
	Search(ctx context.Context, vec []float32, k int) ([]domain.VectorHit, error)

	// Persist serialises the full index to path.
	Persist(path string) error

	// Load replaces the index contents from path. A missing or corrupt
	// file fails with domain.ErrIndexLoad and leaves the index unchanged.
	Load(path string) error

	// Stats reports entry count, dimension and on-disk size.
	Stats() domain.IndexStats

	// Close releases resources.
	Close() error
}
