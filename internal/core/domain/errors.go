package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidBackend indicates an unknown vector-store backend was specified
	ErrInvalidBackend = errors.New("invalid vector store backend")

	// ErrCollectionNotFound indicates the target collection does not exist.
	// This is a setup error, surfaced immediately rather than retried.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrServiceUnavailable indicates a remote dependency could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// EmbeddingProviderError wraps an upstream embedding model/API failure.
// Retryable.
type EmbeddingProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *EmbeddingProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding provider %s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("embedding provider %s: %s", e.Provider, e.Message)
}

func (e *EmbeddingProviderError) Unwrap() error { return e.Err }

// VectorStoreError wraps a vector store connection, schema, or quota failure.
// Retryable unless it wraps ErrCollectionNotFound.
type VectorStoreError struct {
	Backend string
	Op      string
	Err     error
}

func (e *VectorStoreError) Error() string {
	return fmt.Sprintf("vector store %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *VectorStoreError) Unwrap() error { return e.Err }

// ChunkingError indicates malformed document content. Re-running the job
// cannot fix the input, so it fails terminally.
type ChunkingError struct {
	DocumentID int64
	Reason     string
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunking document %d: %s", e.DocumentID, e.Reason)
}

// IsCollectionMissing reports whether the error means the target collection
// does not exist yet.
func IsCollectionMissing(err error) bool {
	return errors.Is(err, ErrCollectionNotFound)
}

// IsRetryable classifies a pipeline error for the job runner. Provider,
// store, and timeout errors go back through the retry/backoff state machine;
// chunking and collection-setup errors fail terminally.
func IsRetryable(err error) bool {
	var chunkErr *ChunkingError
	if errors.As(err, &chunkErr) {
		return false
	}
	if errors.Is(err, ErrCollectionNotFound) {
		return false
	}
	return true
}
