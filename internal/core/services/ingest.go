package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat-cli/internal/chunker"
	"github.com/docuchat/docuchat-cli/internal/core/domain"
	"github.com/docuchat/docuchat-cli/internal/core/ports/driven"
	"github.com/docuchat/docuchat-cli/internal/core/ports/driving"
	"github.com/docuchat/docuchat-cli/internal/logger"
	"github.com/docuchat/docuchat-cli/internal/pdf"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService coordinates the write path: extraction, chunking,
// embedding and index population.
type IngestService struct {
	docStore  driven.DocumentStore
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	splitter  *chunker.Chunker
	indexPath string // snapshot written after every mutation; empty disables
}

// NewIngestService creates a new ingest service. indexPath may be empty
// to skip index snapshots (useful in tests).
func NewIngestService(
	docStore driven.DocumentStore,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	splitter *chunker.Chunker,
	indexPath string,
) *IngestService {
	return &IngestService{
		docStore:  docStore,
		embedder:  embedder,
		index:     index,
		splitter:  splitter,
		indexPath: indexPath,
	}
}

// Ingest chunks, embeds and indexes raw document text. Re-uploading
// content with the same hash returns the existing document untouched.
func (s *IngestService) Ingest(ctx context.Context, filename, text string) (*domain.Document, error) {
	return s.ingest(ctx, filename, text, 0)
}

// IngestFile extracts text from a PDF file and ingests it.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*domain.Document, error) {
	logger.Section("PDF Extraction")
	logger.Debug("Extracting %s", path)

	extraction, err := pdf.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	logger.Debug("Extracted %d pages, %d characters", extraction.PageCount, len(extraction.Text))

	return s.ingest(ctx, filepath.Base(path), extraction.Text, extraction.PageCount)
}

func (s *IngestService) ingest(ctx context.Context, filename, text string, pageCount int) (*domain.Document, error) {
	logger.Section("Ingestion")

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: document %q has no extractable text", domain.ErrInvalidArgument, filename)
	}

	hash := contentHash(text)
	if existing, err := s.docStore.FindByContentHash(ctx, hash); err == nil {
		logger.Info("Content of %q already ingested as %s (%s), skipping", filename, existing.ID, existing.Filename)
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}

	passages := s.splitter.Split(text)
	logger.Debug("Split %q into %d chunks", filename, len(passages))

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	doc := &domain.Document{
		ID:          uuid.NewString(),
		Filename:    filename,
		ContentHash: hash,
		PageCount:   pageCount,
		ChunkCount:  len(passages),
		IngestedAt:  time.Now().UTC(),
	}

	chunks := make([]domain.Chunk, len(passages))
	for i, p := range passages {
		chunks[i] = domain.Chunk{
			ID:         domain.ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Position:   i,
			Content:    p.Text,
			Start:      p.Start,
			End:        p.End,
			Embedding:  vectors[i],
		}
	}

	if err := s.docStore.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := s.docStore.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}

	for i := range chunks {
		if err := s.index.Insert(ctx, chunks[i].ID, chunks[i].Embedding); err != nil {
			return nil, fmt.Errorf("index chunk %s: %w", chunks[i].ID, err)
		}
	}

	if err := s.snapshot(); err != nil {
		return nil, err
	}

	logger.Info("Ingested %q: %d chunks, document %s", filename, len(chunks), doc.ID)
	return doc, nil
}

// Delete removes a document's vector entries and chunks and marks its
// metadata deleted. Idempotent: deleting an unknown ID is a no-op.
func (s *IngestService) Delete(ctx context.Context, documentID string) error {
	logger.Section("Deletion")
	logger.Debug("Deleting document %s", documentID)

	if err := s.index.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if err := s.docStore.DeleteChunks(ctx, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.docStore.MarkDeleted(ctx, documentID); err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}

	return s.snapshot()
}

// List returns metadata for all ingested documents, deleted included.
func (s *IngestService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// Stats reports the current vector index state plus the number of live
// documents behind it.
func (s *IngestService) Stats(ctx context.Context) (domain.IndexStats, error) {
	stats := s.index.Stats()

	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("list documents: %w", err)
	}
	for _, d := range docs {
		if !d.Deleted {
			stats.Documents++
		}
	}

	return stats, nil
}

// LoadIndex restores the vector index snapshot if one exists. A missing
// snapshot is not an error on first run.
func (s *IngestService) LoadIndex() error {
	if s.indexPath == "" {
		return nil
	}
	if err := s.index.Load(s.indexPath); err != nil {
		return err
	}
	return nil
}

// snapshot writes the index to disk after a mutation.
func (s *IngestService) snapshot() error {
	if s.indexPath == "" {
		return nil
	}
	if err := s.index.Persist(s.indexPath); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

// contentHash is the SHA-256 hex digest of the extracted text.
func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
