package domain

import "testing"

func TestCollectionName_Production(t *testing.T) {
	name := CollectionName("production", "text-embedding-3-small", "documents")

	if name != "text-embedding-3-small_documents" {
		t.Errorf("expected no environment prefix in production, got %s", name)
	}
}

func TestCollectionName_NonProduction(t *testing.T) {
	name := CollectionName("staging", "text-embedding-3-small", "documents")

	if name != "staging_text-embedding-3-small_documents" {
		t.Errorf("expected staging prefix, got %s", name)
	}
}

func TestCollectionName_EmptyEnvironment(t *testing.T) {
	name := CollectionName("", "nomic-embed-text", "documents")

	if name != "nomic-embed-text_documents" {
		t.Errorf("expected no prefix for empty environment, got %s", name)
	}
}

func TestCollectionName_Sanitization(t *testing.T) {
	name := CollectionName("Staging", "Text Embedding/3", "My Docs")

	if name != "staging_text_embedding_3_my_docs" {
		t.Errorf("expected sanitized name, got %s", name)
	}
}

func TestCollectionName_Deterministic(t *testing.T) {
	a := CollectionName("staging", "model", "base")
	b := CollectionName("staging", "model", "base")

	if a != b {
		t.Errorf("expected deterministic names, got %s and %s", a, b)
	}
}

func TestCollectionName_ModelSwitchChangesName(t *testing.T) {
	small := CollectionName("production", "text-embedding-3-small", "documents")
	large := CollectionName("production", "text-embedding-3-large", "documents")

	if small == large {
		t.Error("expected different collections for different models")
	}
}
