package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
)

func TestOllamaEmbedding_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		resp := ollamaEmbedResponse{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.5, 0.5, 0.5})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc, err := NewOllamaEmbedding(server.URL, "nomic-embed-text", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embeddings, err := svc.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
}

func TestOllamaEmbedding_KnownDimensions(t *testing.T) {
	svc, err := NewOllamaEmbedding("", "nomic-embed-text", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Dimensions() != 768 {
		t.Errorf("expected 768 dimensions, got %d", svc.Dimensions())
	}
}

func TestOllamaEmbedding_Embed_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Error: "model not found"})
	}))
	defer server.Close()

	svc, _ := NewOllamaEmbedding(server.URL, "missing-model", 0)

	_, err := svc.Embed(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected error")
	}

	var provErr *domain.EmbeddingProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected EmbeddingProviderError, got %T", err)
	}
	if provErr.Provider != "ollama" {
		t.Errorf("expected provider ollama, got %s", provErr.Provider)
	}
}

func TestNewOllamaEmbedding_ConfiguredTimeout(t *testing.T) {
	svc, err := NewOllamaEmbedding("", "nomic-embed-text", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.(*OllamaEmbedding).client.Timeout != 10*time.Second {
		t.Errorf("expected 10s client timeout, got %v", svc.(*OllamaEmbedding).client.Timeout)
	}

	svc, _ = NewOllamaEmbedding("", "nomic-embed-text", 0)
	if svc.(*OllamaEmbedding).client.Timeout != 120*time.Second {
		t.Errorf("expected 120s default timeout, got %v", svc.(*OllamaEmbedding).client.Timeout)
	}
}
