package domain

// VectorHit is a single similarity search result from the vector index.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the cosine similarity to the query vector.
	Score float64
}

// RetrievedChunk pairs a hydrated chunk with its similarity score.
type RetrievedChunk struct {
	Chunk Chunk
	Score float64
}

// RetrievalOptions controls a retrieval request.
type RetrievalOptions struct {
	// K is the number of passages to return.
	K int

	// DocumentIDs restricts results to the given documents.
	// Empty means no restriction.
	DocumentIDs []string
}

// Citation ties an answer back to a source chunk.
type Citation struct {
	// Marker is the tag used in the prompt, e.g. "S1".
	Marker string

	// ChunkID identifies the cited chunk.
	ChunkID string

	// DocumentID identifies the chunk's parent document.
	DocumentID string

	// Filename is the parent document's original file name.
	Filename string

	// Start and End are the chunk's offsets in the document text.
	Start int
	End   int
}

// Answer is the result of retrieval-augmented generation.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Citations lists the source passages actually included in the
	// prompt, in descending score order.
	Citations []Citation
}

// IndexStats describes the current state of the vector index.
type IndexStats struct {
	// Entries is the number of (chunk ID, vector) pairs held.
	Entries int

	// Documents is the number of live (non-deleted) documents backing
	// the entries. Filled by the ingestion service; the index itself
	// only knows chunk IDs.
	Documents int

	// Dimension is the fixed vector dimension, 0 until the first insert.
	Dimension int

	// DiskSize is the size in bytes of the last persisted index file.
	DiskSize int64

	// Approximate reports whether queries currently use the graph
	// index instead of the exact scan.
	Approximate bool
}
