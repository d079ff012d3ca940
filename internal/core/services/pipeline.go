package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/chunker"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/runtime"
)

// EmbeddingPipeline executes the embedding job handlers. It is the only code
// that writes to the vector store; the indexing service and the worker both
// drive it, never the store directly.
//
// Every handler is idempotent: re-running a job converges on the same point
// set because point IDs are deterministic and upserts replace.
type EmbeddingPipeline struct {
	documentStore driven.DocumentStore
	vectorStore   driven.VectorStore
	queue         driven.JobQueue
	services      *runtime.Services
	environment   string
	base          string
	chunkOpts     chunker.Options
	logger        *slog.Logger
}

// EmbeddingPipelineConfig holds dependencies for EmbeddingPipeline.
type EmbeddingPipelineConfig struct {
	DocumentStore driven.DocumentStore
	VectorStore   driven.VectorStore
	Queue         driven.JobQueue
	Services      *runtime.Services
	Environment   string

	// CollectionBase is the logical collection name before environment and
	// model prefixing.
	CollectionBase string

	// MaxChunkChars overrides the chunker's size threshold when positive.
	MaxChunkChars int

	Logger *slog.Logger
}

// NewEmbeddingPipeline creates a new embedding pipeline.
func NewEmbeddingPipeline(cfg EmbeddingPipelineConfig) *EmbeddingPipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.CollectionBase
	if base == "" {
		base = "documents"
	}

	return &EmbeddingPipeline{
		documentStore: cfg.DocumentStore,
		vectorStore:   cfg.VectorStore,
		queue:         cfg.Queue,
		services:      cfg.Services,
		environment:   cfg.Environment,
		base:          base,
		chunkOpts:     chunker.Options{MaxChunkChars: cfg.MaxChunkChars},
		logger:        logger,
	}
}

// CollectionName resolves the collection for the currently configured
// embedding model.
func (p *EmbeddingPipeline) CollectionName() (string, error) {
	embeddingService := p.services.EmbeddingService()
	if embeddingService == nil {
		return "", fmt.Errorf("embedding service not configured: %w", domain.ErrServiceUnavailable)
	}
	return domain.CollectionName(p.environment, embeddingService.Model(), p.base), nil
}

// EnsureCollection creates the collection for the current embedding model if
// it does not exist yet, and returns its name.
func (p *EmbeddingPipeline) EnsureCollection(ctx context.Context) (string, error) {
	embeddingService := p.services.EmbeddingService()
	if embeddingService == nil {
		return "", fmt.Errorf("embedding service not configured: %w", domain.ErrServiceUnavailable)
	}

	name := domain.CollectionName(p.environment, embeddingService.Model(), p.base)

	exists, err := p.vectorStore.CollectionExists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return name, nil
	}

	err = p.vectorStore.CreateCollection(ctx, name, driven.CollectionParams{
		Dimension: embeddingService.Dimensions(),
		Distance:  driven.DistanceCosine,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create collection: %w", err)
	}

	p.logger.Info("created collection",
		"collection", name,
		"dimension", embeddingService.Dimensions())
	return name, nil
}

// PrepareDocument handles a prepare-embeddings job: render the document's
// blocks to markdown, cache it, chunk it, and fan out one embed-chunk job per
// chunk. A missing or no-longer-embeddable document completes as a no-op;
// the delete path owns removal.
func (p *EmbeddingPipeline) PrepareDocument(ctx context.Context, documentID int64) error {
	doc, err := p.documentStore.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.logger.Info("document gone, skipping prepare", "document_id", documentID)
			return nil
		}
		return fmt.Errorf("failed to load document %d: %w", documentID, err)
	}

	if !doc.Embeddable() {
		p.logger.Info("document not embeddable, skipping prepare",
			"document_id", documentID,
			"status", doc.Status,
			"active", doc.Active)
		return nil
	}

	markdown, err := chunker.RenderMarkdown(doc)
	if err != nil {
		return fmt.Errorf("failed to render document %d: %w", documentID, err)
	}

	if err := p.documentStore.UpdateCachedMarkdown(ctx, documentID, markdown); err != nil {
		return fmt.Errorf("failed to cache markdown for document %d: %w", documentID, err)
	}

	chunks := chunker.Chunk(markdown, p.chunkOpts)
	if len(chunks) == 0 {
		p.logger.Info("document produced no chunks", "document_id", documentID)
		return nil
	}

	meta := domain.ChunkMetadata{
		Title:       doc.Title,
		Description: doc.Description,
		ChunkTotal:  len(chunks),
	}

	jobs := make([]*domain.Job, 0, len(chunks))
	for _, chunk := range chunks {
		jobs = append(jobs, domain.NewEmbedChunkJob(documentID, chunk, meta))
	}

	if err := p.queue.EnqueueBatch(ctx, jobs); err != nil {
		return fmt.Errorf("failed to enqueue embed jobs for document %d: %w", documentID, err)
	}

	p.logger.Info("prepared document",
		"document_id", documentID,
		"chunks", len(chunks))
	return nil
}

// EmbedChunk handles an embed-chunk job: embed one chunk's text and upsert
// its point. The document is re-checked because it may have been unpublished
// between fan-out and processing.
func (p *EmbeddingPipeline) EmbedChunk(ctx context.Context, payload domain.JobPayload) error {
	if payload.Chunk == nil || payload.Metadata == nil {
		return &domain.ChunkingError{
			DocumentID: payload.DocumentID,
			Reason:     "embed-chunk job missing chunk payload",
		}
	}

	doc, err := p.documentStore.GetDocument(ctx, payload.DocumentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.logger.Info("document gone, skipping chunk",
				"document_id", payload.DocumentID,
				"chunk_index", payload.ChunkIndex)
			return nil
		}
		return fmt.Errorf("failed to load document %d: %w", payload.DocumentID, err)
	}
	if !doc.Embeddable() {
		p.logger.Info("document not embeddable, skipping chunk",
			"document_id", payload.DocumentID,
			"chunk_index", payload.ChunkIndex)
		return nil
	}

	embeddingService := p.services.EmbeddingService()
	if embeddingService == nil {
		return fmt.Errorf("embedding service not configured: %w", domain.ErrServiceUnavailable)
	}

	collection, err := p.EnsureCollection(ctx)
	if err != nil {
		return err
	}

	chunk := payload.Chunk
	vector, err := embeddingService.Embed(ctx, []string{chunk.EmbeddingText()})
	if err != nil {
		return fmt.Errorf("failed to embed chunk %d of document %d: %w",
			chunk.Index, payload.DocumentID, err)
	}

	point := &domain.Point{
		ID:     domain.PointID(payload.DocumentID, chunk.Index),
		Vector: vector[0],
		Payload: domain.PointPayload{
			DocumentID:     payload.DocumentID,
			Title:          payload.Metadata.Title,
			SectionHeading: chunk.SectionHeading,
			ParentHeading:  chunk.ParentHeading,
			HeadingLevel:   chunk.HeadingLevel,
			ChunkIndex:     chunk.Index,
			ChunkTotal:     payload.Metadata.ChunkTotal,
			Description:    payload.Metadata.Description,
			CreatedAt:      time.Now().UTC(),
			Type:           domain.PointTypeDocumentChunk,
		},
		Content: chunk.Text,
	}

	if err := p.vectorStore.UpsertPoints(ctx, collection, []*domain.Point{point}); err != nil {
		return fmt.Errorf("failed to upsert point for document %d chunk %d: %w",
			payload.DocumentID, chunk.Index, err)
	}
	return nil
}

// DeleteDocumentEmbeddings handles a delete-embeddings job. It removes every
// point of the document through the backend's document filter; chunk indexes
// may have gaps when an embed job failed terminally. Returns the number of
// points removed.
func (p *EmbeddingPipeline) DeleteDocumentEmbeddings(ctx context.Context, documentID int64) (int, error) {
	collection, err := p.CollectionName()
	if err != nil {
		return 0, err
	}

	exists, err := p.vectorStore.CollectionExists(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return 0, nil
	}

	deleted, err := p.vectorStore.DeleteByDocument(ctx, collection, documentID)
	if err != nil {
		return deleted, fmt.Errorf("failed to delete points for document %d: %w", documentID, err)
	}

	if deleted > 0 {
		p.logger.Info("deleted document embeddings",
			"document_id", documentID,
			"points", deleted)
	}
	return deleted, nil
}
