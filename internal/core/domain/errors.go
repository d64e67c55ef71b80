package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrConfig indicates invalid configuration or parameters.
	// Fatal to the call, never retried.
	ErrConfig = errors.New("invalid configuration")

	// ErrInvalidArgument indicates a malformed argument from the caller.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDimensionMismatch indicates a vector whose length does not
	// match the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrDuplicateID indicates an insert for a chunk ID already present
	// in the vector index.
	ErrDuplicateID = errors.New("duplicate chunk id")

	// ErrEmptyIndex signals that the vector index holds no entries yet.
	// Informational: there is nothing to retrieve, not a failure.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrIndexLoad indicates persisted index state is missing or corrupt.
	// The index falls back to empty and ingestion must be replayed.
	ErrIndexLoad = errors.New("index load failed")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")
)

// EmbeddingServiceError reports a failed embedding call after the retry
// budget was exhausted. BatchStart/BatchEnd are the indices of the
// offending batch within the original input.
type EmbeddingServiceError struct {
	Op         string
	BatchStart int
	BatchEnd   int
	Err        error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service: %s (texts %d-%d): %v", e.Op, e.BatchStart, e.BatchEnd, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// GenerationServiceError reports a failed generation call. Generation is
// never retried internally: the call is not idempotent-safe.
type GenerationServiceError struct {
	Op  string
	Err error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generation service: %s: %v", e.Op, e.Err)
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }
