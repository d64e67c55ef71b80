package driving

import (
	"context"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
)

// IngestService coordinates the write path: chunking, embedding and
// vector index population for newly uploaded documents.
type IngestService interface {
	// Ingest chunks, embeds and indexes raw document text.
	// Returns the stored document metadata.
	Ingest(ctx context.Context, filename, text string) (*domain.Document, error)

	// IngestFile extracts text from a PDF file and ingests it.
	IngestFile(ctx context.Context, path string) (*domain.Document, error)

	// Delete removes a document: vector entries, chunks and marks the
	// metadata deleted. Idempotent.
	Delete(ctx context.Context, documentID string) error

	// List returns metadata for all ingested documents.
	List(ctx context.Context) ([]domain.Document, error)

	// Stats reports the current vector index state.
	Stats(ctx context.Context) (domain.IndexStats, error)
}
