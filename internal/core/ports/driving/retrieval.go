package driving

import (
	"context"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
)

// RetrievalService answers semantic queries for the chat feature. An empty
// result means no passage cleared the score threshold; the caller decides how
// to respond to missing grounding.
type RetrievalService interface {
	// Retrieve embeds the query (optionally rewritten first), searches the
	// vector store, and returns passages in descending score order.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.RankedPassage, error)
}
