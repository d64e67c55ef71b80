package driven

import (
	"context"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
)

// DocumentStore persists document metadata and chunk provenance.
// Backed by SQLite; assumed read-your-writes for the calling process.
type DocumentStore interface {
	// PutDocument stores a document's metadata.
	PutDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// MarkDeleted flags a document as deleted. Idempotent.
	MarkDeleted(ctx context.Context, id string) error

	// ListDocuments returns all documents, including deleted ones.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// FindByContentHash returns the live document with the given
	// content hash, or domain.ErrNotFound.
	FindByContentHash(ctx context.Context, hash string) (*domain.Document, error)

	// SaveChunks stores chunks for a document.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks retrieves all chunks for a document, ordered by position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteChunks removes all chunks for a document. Idempotent.
	DeleteChunks(ctx context.Context, documentID string) error

	// Close releases resources.
	Close() error
}
