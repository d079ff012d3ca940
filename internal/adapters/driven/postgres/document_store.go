package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// GetDocument fetches a document by ID
func (s *DocumentStore) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	query := `
		SELECT id, title, description, blocks, markdown, status, active, updated_at
		FROM documents
		WHERE id = $1
	`
	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}
	return doc, nil
}

// ListPublishedDocuments returns all active, published documents
func (s *DocumentStore) ListPublishedDocuments(ctx context.Context) ([]*domain.Document, error) {
	query := `
		SELECT id, title, description, blocks, markdown, status, active, updated_at
		FROM documents
		WHERE status = $1 AND active
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, domain.DocumentStatusPublished)
	if err != nil {
		return nil, fmt.Errorf("list published documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list published documents: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateCachedMarkdown writes the derived text representation back as a cache
func (s *DocumentStore) UpdateCachedMarkdown(ctx context.Context, id int64, markdown string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE documents SET markdown = $2 WHERE id = $1", id, markdown)
	if err != nil {
		return fmt.Errorf("update cached markdown for document %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc    domain.Document
		blocks []byte
	)
	if err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Description,
		&blocks,
		&doc.Markdown,
		&doc.Status,
		&doc.Active,
		&doc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(blocks) > 0 {
		if err := json.Unmarshal(blocks, &doc.Blocks); err != nil {
			return nil, fmt.Errorf("unmarshal blocks: %w", err)
		}
	}
	return &doc, nil
}
