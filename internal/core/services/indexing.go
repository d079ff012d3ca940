package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driving"
)

// Ensure indexingService implements IndexingService
var _ driving.IndexingService = (*indexingService)(nil)

// indexingService reacts to document lifecycle events. It only enqueues
// jobs; the worker pool applies the actual vector-store mutations, so every
// mutation gets retry and rate-limit coverage for free.
type indexingService struct {
	documentStore driven.DocumentStore
	queue         driven.JobQueue
	logger        *slog.Logger
}

// NewIndexingService creates a new IndexingService
func NewIndexingService(
	documentStore driven.DocumentStore,
	queue driven.JobQueue,
	logger *slog.Logger,
) driving.IndexingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &indexingService{
		documentStore: documentStore,
		queue:         queue,
		logger:        logger,
	}
}

// DocumentPublished enqueues a prepare job for a newly published document.
func (s *indexingService) DocumentPublished(ctx context.Context, documentID int64) error {
	job := domain.NewPrepareEmbeddingsJob(documentID)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue prepare job for document %d: %w", documentID, err)
	}
	s.logger.Info("enqueued prepare job", "document_id", documentID, "job_id", job.ID)
	return nil
}

// DocumentUpdated enqueues a delete job followed by a prepare job. Deletion
// goes first because an update can shrink the chunk count; recreating before
// deleting would leave orphaned tail points.
func (s *indexingService) DocumentUpdated(ctx context.Context, documentID int64) error {
	deleteJob := domain.NewDeleteEmbeddingsJob(documentID)
	if err := s.queue.Enqueue(ctx, deleteJob); err != nil {
		return fmt.Errorf("failed to enqueue delete job for document %d: %w", documentID, err)
	}

	prepareJob := domain.NewPrepareEmbeddingsJob(documentID)
	if err := s.queue.Enqueue(ctx, prepareJob); err != nil {
		return fmt.Errorf("failed to enqueue prepare job for document %d: %w", documentID, err)
	}

	s.logger.Info("enqueued update jobs",
		"document_id", documentID,
		"delete_job_id", deleteJob.ID,
		"prepare_job_id", prepareJob.ID)
	return nil
}

// DocumentRemoved enqueues a delete job for a removed or unpublished document.
func (s *indexingService) DocumentRemoved(ctx context.Context, documentID int64) error {
	job := domain.NewDeleteEmbeddingsJob(documentID)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue delete job for document %d: %w", documentID, err)
	}
	s.logger.Info("enqueued delete job", "document_id", documentID, "job_id", job.ID)
	return nil
}

// ReindexAll enqueues a prepare job for every published document. A failed
// enqueue is recorded per document and does not stop the run.
func (s *indexingService) ReindexAll(ctx context.Context) (*driving.ReindexResult, error) {
	docs, err := s.documentStore.ListPublishedDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list published documents: %w", err)
	}

	result := &driving.ReindexResult{
		Total:  len(docs),
		Errors: make(map[int64]string),
	}

	for _, doc := range docs {
		job := domain.NewPrepareEmbeddingsJob(doc.ID)
		if err := s.queue.Enqueue(ctx, job); err != nil {
			result.Failed++
			result.Errors[doc.ID] = err.Error()
			s.logger.Warn("failed to enqueue reindex job",
				"document_id", doc.ID,
				"error", err)
			continue
		}
		result.Enqueued++
	}

	s.logger.Info("reindex enqueued",
		"total", result.Total,
		"enqueued", result.Enqueued,
		"failed", result.Failed)
	return result, nil
}
