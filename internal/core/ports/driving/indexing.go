package driving

import (
	"context"
)

// ReindexResult reports per-document outcomes of a batch re-embedding run.
type ReindexResult struct {
	// Total is the number of documents considered.
	Total int `json:"total"`

	// Enqueued is the number of documents whose prepare job was enqueued.
	Enqueued int `json:"enqueued"`

	// Failed is the number of documents whose enqueue failed.
	Failed int `json:"failed"`

	// Errors maps document ID to the enqueue error message.
	Errors map[int64]string `json:"errors,omitempty"`
}

// IndexingService reacts to document lifecycle events and keeps the vector
// index eventually consistent with the relational store. It never touches
// the vector store directly; all mutation goes through the job queue so it
// gets retry and rate-limit coverage.
type IndexingService interface {
	// DocumentPublished handles a document being created as published, or
	// transitioning from draft to published.
	DocumentPublished(ctx context.Context, documentID int64) error

	// DocumentUpdated handles a content update to a published document.
	// The old point set is deleted before recreation since chunk boundaries
	// may shift.
	DocumentUpdated(ctx context.Context, documentID int64) error

	// DocumentRemoved handles deletion or unpublishing of a document.
	DocumentRemoved(ctx context.Context, documentID int64) error

	// ReindexAll enqueues a prepare job for every published document and
	// reports per-document success/failure without aborting on first error.
	ReindexAll(ctx context.Context) (*ReindexResult, error)
}
