package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
)

// Ensure OllamaEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*OllamaEmbedding)(nil)

// OllamaEmbedding implements EmbeddingService against a local Ollama server
type OllamaEmbedding struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// Model dimensions for common Ollama embedding models
var ollamaModelDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

// NewOllamaEmbedding creates a new Ollama embedding service. A zero timeout
// falls back to a 120s default; local models can be slow to load.
func NewOllamaEmbedding(baseURL, model string, timeout time.Duration) (driven.EmbeddingService, error) {
	if model == "" {
		return nil, fmt.Errorf("Ollama model is required")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	dimensions, ok := ollamaModelDimensions[model]
	if !ok {
		dimensions = 768
	}

	return &OllamaEmbedding{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		dimensions: dimensions,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed generates embeddings for multiple texts
func (e *OllamaEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: empty text at index %d", domain.ErrInvalidInput, i)
		}
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &domain.EmbeddingProviderError{
			Provider: string(domain.AIProviderOllama),
			Message:  "request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.EmbeddingProviderError{
			Provider: string(domain.AIProviderOllama),
			Message:  "failed to read response",
			Err:      err,
		}
	}

	var embResp ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, &domain.EmbeddingProviderError{
			Provider: string(domain.AIProviderOllama),
			Message:  fmt.Sprintf("failed to parse response (status %d)", resp.StatusCode),
			Err:      err,
		}
	}

	if embResp.Error != "" {
		return nil, &domain.EmbeddingProviderError{
			Provider: string(domain.AIProviderOllama),
			Message:  embResp.Error,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.EmbeddingProviderError{
			Provider: string(domain.AIProviderOllama),
			Message:  fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}
	if len(embResp.Embeddings) != len(texts) {
		return nil, &domain.EmbeddingProviderError{
			Provider: string(domain.AIProviderOllama),
			Message:  fmt.Sprintf("got %d embeddings for %d inputs", len(embResp.Embeddings), len(texts)),
		}
	}

	return embResp.Embeddings, nil
}

// EmbedQuery generates an embedding for a search query
func (e *OllamaEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, &domain.EmbeddingProviderError{
			Provider: string(domain.AIProviderOllama),
			Message:  "no embedding returned for query",
		}
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimension size
func (e *OllamaEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *OllamaEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is available
func (e *OllamaEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases resources held by the embedding service
func (e *OllamaEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
