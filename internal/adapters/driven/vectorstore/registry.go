// Package vectorstore selects and constructs the vector-store backend from
// configuration. Selection happens once at process start; the returned store
// is process-wide state with an explicit Initialize/Close lifecycle.
package vectorstore

import (
	"fmt"
	"time"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/adapters/driven/vectorstore/memory"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/adapters/driven/vectorstore/pgvector"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/adapters/driven/vectorstore/qdrant"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
)

// Backend names accepted in configuration.
const (
	BackendQdrant   = "qdrant"
	BackendPgvector = "pgvector"
	BackendMemory   = "memory"
)

// Config holds environment-sourced vector-store configuration.
type Config struct {
	// Backend selects the implementation: qdrant, pgvector, or memory.
	Backend string

	// Host and Port locate a qdrant server.
	Host string
	Port int

	// APIKey authenticates against qdrant when set.
	APIKey string

	// DatabaseURL is the pgvector connection string.
	DatabaseURL string

	// Timeout bounds each backend request.
	Timeout time.Duration
}

// factory builds a backend from config.
type factory func(cfg Config) (driven.VectorStore, error)

// registry maps configuration values to concrete implementations.
var registry = map[string]factory{
	BackendQdrant: func(cfg Config) (driven.VectorStore, error) {
		return qdrant.NewClient(qdrant.Config{
			Host:    cfg.Host,
			Port:    cfg.Port,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
	},
	BackendPgvector: func(cfg Config) (driven.VectorStore, error) {
		return pgvector.NewStore(pgvector.Config{URL: cfg.DatabaseURL})
	},
	BackendMemory: func(cfg Config) (driven.VectorStore, error) {
		return memory.NewStore(), nil
	},
}

// New constructs the configured backend. The caller owns the lifecycle:
// Initialize before first use, Close on shutdown.
func New(cfg Config) (driven.VectorStore, error) {
	create, ok := registry[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidBackend, cfg.Backend)
	}
	return create(cfg)
}
