package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
)

// MockDocumentStore is an in-memory DocumentStore for testing
type MockDocumentStore struct {
	mu        sync.Mutex
	documents map[int64]*domain.Document

	// Cached markdown writes, keyed by document ID
	markdownWrites map[int64]string
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents:      make(map[int64]*domain.Document),
		markdownWrites: make(map[int64]string),
	}
}

func (m *MockDocumentStore) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *MockDocumentStore) ListPublishedDocuments(ctx context.Context) ([]*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []*domain.Document
	for _, doc := range m.documents {
		if doc.Embeddable() {
			copied := *doc
			docs = append(docs, &copied)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *MockDocumentStore) UpdateCachedMarkdown(ctx context.Context, id int64, markdown string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Markdown = markdown
	m.markdownWrites[id] = markdown
	return nil
}

// Helper methods for testing

// PutDocument seeds a document.
func (m *MockDocumentStore) PutDocument(doc *domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *doc
	m.documents[doc.ID] = &copied
}

// RemoveDocument deletes a document.
func (m *MockDocumentStore) RemoveDocument(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, id)
}

// CachedMarkdown returns the last markdown written for a document.
func (m *MockDocumentStore) CachedMarkdown(id int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.markdownWrites[id]
	return md, ok
}
