package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driving"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/runtime"
)

// Retrieval defaults
const (
	defaultTopK = 5
	maxTopK     = 50
)

// Ensure retrievalService implements RetrievalService
var _ driving.RetrievalService = (*retrievalService)(nil)

// retrievalService implements the RetrievalService interface
type retrievalService struct {
	vectorStore driven.VectorStore
	services    *runtime.Services
	environment string
	base        string
	logger      *slog.Logger
}

// NewRetrievalService creates a new RetrievalService. The collection base
// must match the one the pipeline indexes into.
func NewRetrievalService(
	vectorStore driven.VectorStore,
	services *runtime.Services,
	environment string,
	collectionBase string,
	logger *slog.Logger,
) driving.RetrievalService {
	if logger == nil {
		logger = slog.Default()
	}
	if collectionBase == "" {
		collectionBase = "documents"
	}
	return &retrievalService{
		vectorStore: vectorStore,
		services:    services,
		environment: environment,
		base:        collectionBase,
		logger:      logger,
	}
}

// Retrieve embeds the query and returns the best-scoring passages. A rewrite
// failure falls back to the raw query; a missing collection means nothing was
// indexed yet and returns an empty result rather than an error.
func (s *retrievalService) Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.RankedPassage, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}

	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.TopK > maxTopK {
		opts.TopK = maxTopK
	}

	embeddingService := s.services.EmbeddingService()
	if embeddingService == nil {
		return nil, fmt.Errorf("embedding service not configured: %w", domain.ErrServiceUnavailable)
	}

	searchQuery := query
	if opts.Rewrite {
		if llm := s.services.LLMService(); llm != nil {
			rewritten, err := llm.RewriteQuery(ctx, query)
			if err != nil {
				// Degrade to the raw query; rewriting is an optimization
				s.logger.Warn("query rewrite failed, using raw query", "error", err)
			} else if rewritten != "" {
				searchQuery = rewritten
			}
		}
	}

	vector, err := embeddingService.EmbedQuery(ctx, searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	collection := domain.CollectionName(s.environment, embeddingService.Model(), s.base)

	hits, err := s.vectorStore.Search(ctx, collection, vector, driven.SearchParams{
		Limit:    opts.TopK,
		MinScore: opts.MinScore,
	})
	if err != nil {
		if domain.IsCollectionMissing(err) {
			s.logger.Warn("collection missing, nothing indexed yet", "collection", collection)
			return []domain.RankedPassage{}, nil
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	passages := make([]domain.RankedPassage, 0, len(hits))
	for _, hit := range hits {
		passages = append(passages, domain.RankedPassage{
			DocumentID:     hit.Payload.DocumentID,
			Title:          hit.Payload.Title,
			SectionHeading: hit.Payload.SectionHeading,
			ParentHeading:  hit.Payload.ParentHeading,
			Text:           hit.Content,
			Score:          hit.Score,
		})
	}
	return passages, nil
}
