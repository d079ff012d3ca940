package driven

import (
	"context"
)

// LLMService provides the text-generation capability used by retrieval.
type LLMService interface {
	// RewriteQuery rewrites a raw user query into a retrieval-optimized one.
	// Returns the rewritten query.
	RewriteQuery(ctx context.Context, query string) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
