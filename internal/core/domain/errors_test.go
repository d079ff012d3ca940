package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable_ProviderError(t *testing.T) {
	err := &EmbeddingProviderError{Provider: "openai", Message: "rate limited"}

	if !IsRetryable(err) {
		t.Error("provider errors should be retryable")
	}
}

func TestIsRetryable_VectorStoreError(t *testing.T) {
	err := &VectorStoreError{Backend: "qdrant", Op: "upsert", Err: errors.New("connection refused")}

	if !IsRetryable(err) {
		t.Error("store connection errors should be retryable")
	}
}

func TestIsRetryable_Timeout(t *testing.T) {
	if !IsRetryable(context.DeadlineExceeded) {
		t.Error("timeouts should be retryable")
	}
}

func TestIsRetryable_ChunkingError(t *testing.T) {
	err := &ChunkingError{DocumentID: 1, Reason: "unknown block type"}

	if IsRetryable(err) {
		t.Error("chunking errors should fail terminally")
	}
}

func TestIsRetryable_WrappedChunkingError(t *testing.T) {
	err := fmt.Errorf("handler: %w", &ChunkingError{DocumentID: 1, Reason: "bad input"})

	if IsRetryable(err) {
		t.Error("wrapped chunking errors should fail terminally")
	}
}

func TestIsRetryable_CollectionNotFound(t *testing.T) {
	err := &VectorStoreError{Backend: "qdrant", Op: "search", Err: ErrCollectionNotFound}

	if IsRetryable(err) {
		t.Error("collection setup errors should fail terminally")
	}
}

func TestIsCollectionMissing(t *testing.T) {
	wrapped := fmt.Errorf("search: %w", ErrCollectionNotFound)

	if !IsCollectionMissing(wrapped) {
		t.Error("expected wrapped ErrCollectionNotFound to be detected")
	}
	if IsCollectionMissing(ErrNotFound) {
		t.Error("ErrNotFound is not a missing collection")
	}
}
