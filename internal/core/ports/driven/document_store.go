package driven

import (
	"context"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
)

// DocumentStore is the boundary to the relational source of truth. The
// pipeline only reads documents and writes back the derived markdown cache;
// document CRUD itself lives outside this system.
type DocumentStore interface {
	// GetDocument fetches a document by ID. Returns domain.ErrNotFound when
	// the document does not exist.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// ListPublishedDocuments returns all active, published documents.
	ListPublishedDocuments(ctx context.Context) ([]*domain.Document, error)

	// UpdateCachedMarkdown writes the derived text representation back as a
	// cache on the document row.
	UpdateCachedMarkdown(ctx context.Context, id int64, markdown string) error
}
