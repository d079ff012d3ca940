// Package pgvector implements the VectorStore port on PostgreSQL with the
// pgvector extension. Each collection is one table with an HNSW cosine index.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*Store)(nil)

const backendName = "pgvector"

// undefinedTableCode is the PostgreSQL error code for a missing relation.
const undefinedTableCode = "42P01"

// Config holds pgvector connection configuration
type Config struct {
	// URL is the full connection string
	URL string
}

// Store is a pgvector-backed VectorStore.
type Store struct {
	url  string
	pool *pgxpool.Pool
}

// NewStore creates a new pgvector store. The pool is opened by Initialize.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("pgvector connection URL is required")
	}
	return &Store{url: cfg.URL}, nil
}

// Initialize opens the connection pool and ensures the vector extension.
func (s *Store) Initialize(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, s.url)
	if err != nil {
		return &domain.VectorStoreError{Backend: backendName, Op: "connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return &domain.VectorStoreError{Backend: backendName, Op: "ping", Err: err}
	}
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		pool.Close()
		return &domain.VectorStoreError{Backend: backendName, Op: "create extension", Err: err}
	}
	s.pool = pool
	return nil
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)",
		name,
	).Scan(&exists)
	if err != nil {
		return false, &domain.VectorStoreError{Backend: backendName, Op: "collection exists", Err: err}
	}
	return exists, nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, params driven.CollectionParams) error {
	if params.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}

	table := pgx.Identifier{name}.Sanitize()
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         text PRIMARY KEY,
			embedding  vector(%d) NOT NULL,
			payload    jsonb NOT NULL DEFAULT '{}',
			content    text NOT NULL DEFAULT ''
		)`, table, params.Dimension)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return &domain.VectorStoreError{Backend: backendName, Op: "create collection", Err: err}
	}

	index := pgx.Identifier{name + "_embedding_idx"}.Sanitize()
	idxDDL := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding %s)",
		index, table, opClass(params.Distance),
	)
	if _, err := s.pool.Exec(ctx, idxDDL); err != nil {
		return &domain.VectorStoreError{Backend: backendName, Op: "create index", Err: err}
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	table := pgx.Identifier{name}.Sanitize()
	if _, err := s.pool.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return &domain.VectorStoreError{Backend: backendName, Op: "delete collection", Err: err}
	}
	return nil
}

func (s *Store) UpsertPoints(ctx context.Context, name string, points []*domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	table := pgx.Identifier{name}.Sanitize()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, payload, content)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			payload = EXCLUDED.payload,
			content = EXCLUDED.content`, table)

	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload for point %s: %w", p.ID, err)
		}
		if _, err := s.pool.Exec(ctx, query, p.ID, pgv.NewVector(p.Vector), payload, p.Content); err != nil {
			return s.wrapError("upsert points", err)
		}
	}
	return nil
}

func (s *Store) GetPoint(ctx context.Context, name, id string) (*domain.Point, error) {
	table := pgx.Identifier{name}.Sanitize()
	query := fmt.Sprintf("SELECT id, embedding, payload, content FROM %s WHERE id = $1", table)

	var (
		point   domain.Point
		vec     pgv.Vector
		payload []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(&point.ID, &vec, &payload, &point.Content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, s.wrapError("get point", err)
	}

	point.Vector = vec.Slice()
	if err := json.Unmarshal(payload, &point.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload for point %s: %w", id, err)
	}
	return &point, nil
}

func (s *Store) DeletePoint(ctx context.Context, name, id string) error {
	table := pgx.Identifier{name}.Sanitize()
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id); err != nil {
		return s.wrapError("delete point", err)
	}
	return nil
}

func (s *Store) DeleteByDocument(ctx context.Context, name string, documentID int64) (int, error) {
	table := pgx.Identifier{name}.Sanitize()
	query := fmt.Sprintf("DELETE FROM %s WHERE (payload->>'document_id')::bigint = $1", table)
	tag, err := s.pool.Exec(ctx, query, documentID)
	if err != nil {
		return 0, s.wrapError("delete document points", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) CountPoints(ctx context.Context, name string) (int64, error) {
	table := pgx.Identifier{name}.Sanitize()
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return 0, s.wrapError("count points", err)
	}
	return count, nil
}

func (s *Store) Search(ctx context.Context, name string, vector []float32, params driven.SearchParams) ([]*domain.ScoredPoint, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	table := pgx.Identifier{name}.Sanitize()
	query := fmt.Sprintf(`
		SELECT id, payload, content, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE ($2::bigint = 0 OR (payload->>'document_id')::bigint = $2)
		ORDER BY embedding <=> $1
		LIMIT $3`, table)

	rows, err := s.pool.Query(ctx, query, pgv.NewVector(vector), params.Filter.DocumentID, limit)
	if err != nil {
		return nil, s.wrapError("search", err)
	}
	defer rows.Close()

	var results []*domain.ScoredPoint
	for rows.Next() {
		var (
			sp      domain.ScoredPoint
			payload []byte
		)
		if err := rows.Scan(&sp.ID, &payload, &sp.Content, &sp.Score); err != nil {
			return nil, s.wrapError("search scan", err)
		}
		if err := json.Unmarshal(payload, &sp.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload for point %s: %w", sp.ID, err)
		}
		if params.MinScore > 0 && sp.Score < params.MinScore {
			// Rows are ordered by distance; once below threshold, done.
			break
		}
		results = append(results, &sp)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapError("search rows", err)
	}
	return results, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

// wrapError maps a missing table to the non-retryable setup error and
// everything else to a retryable VectorStoreError.
func (s *Store) wrapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode {
		return fmt.Errorf("%s: %w", op, domain.ErrCollectionNotFound)
	}
	return &domain.VectorStoreError{Backend: backendName, Op: op, Err: err}
}

func opClass(d driven.Distance) string {
	switch d {
	case driven.DistanceDot:
		return "vector_ip_ops"
	case driven.DistanceEuclidean:
		return "vector_l2_ops"
	default:
		return "vector_cosine_ops"
	}
}
