package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Document represents an ingested PDF file.
// Immutable after ingestion except for the Deleted flag.
type Document struct {
	// ID is the unique identifier, assigned at ingestion.
	ID string

	// Filename is the original file name of the uploaded PDF.
	Filename string

	// ContentHash is the SHA-256 hex digest of the extracted text.
	// Used to detect re-uploads of identical content.
	ContentHash string

	// PageCount is the number of pages in the source PDF.
	// Zero when the text did not come from a PDF (e.g. raw text ingest).
	PageCount int

	// ChunkCount is the number of chunks produced at ingestion.
	ChunkCount int

	// Deleted marks the document as removed. Its chunks and vector
	// index entries are gone; the metadata row remains for auditing.
	Deleted bool

	// IngestedAt is when the document was ingested.
	IngestedAt time.Time
}

// Chunk is the unit of embedding and retrieval: a bounded, overlapping
// slice of a document's extracted text.
// Never mutated after creation; deleted only with its parent document.
type Chunk struct {
	// ID is derived from the parent document and ordinal position,
	// in the form "<documentID>:<position>".
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Position is the ordinal position within the document.
	Position int

	// Content is the raw text of this chunk.
	Content string

	// Start and End are the rune offsets of Content within the
	// document's extracted text ([Start, End)).
	Start int
	End   int

	// Embedding is the vector representation, produced once at
	// ingestion and immutable afterwards.
	Embedding []float32
}

// ChunkID builds the canonical chunk identifier for a document and position.
func ChunkID(documentID string, position int) string {
	return fmt.Sprintf("%s:%d", documentID, position)
}

// ParseChunkID splits a chunk identifier into document ID and position.
func ParseChunkID(id string) (documentID string, position int, err error) {
	i := strings.LastIndexByte(id, ':')
	if i <= 0 {
		return "", 0, fmt.Errorf("%w: malformed chunk id %q", ErrInvalidArgument, id)
	}
	position, err = strconv.Atoi(id[i+1:])
	if err != nil || position < 0 {
		return "", 0, fmt.Errorf("%w: malformed chunk id %q", ErrInvalidArgument, id)
	}
	return id[:i], position, nil
}

// DocumentOfChunk reports whether the chunk identifier belongs to the
// given document.
func DocumentOfChunk(chunkID, documentID string) bool {
	return strings.HasPrefix(chunkID, documentID+":")
}
