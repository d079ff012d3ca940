package domain

import "time"

// AIProvider identifies the AI/embedding provider
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
	AIProviderOllama AIProvider = "ollama"
)

// EmbeddingSettings configures the embedding service
type EmbeddingSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`

	// Timeout bounds each embedding request. Zero means the provider
	// adapter's default.
	Timeout time.Duration `json:"-"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" || e.Model == "" {
		return false
	}
	// Ollama runs locally and needs no API key
	if e.Provider == AIProviderOllama {
		return true
	}
	return e.APIKey != ""
}

// LLMSettings configures the text-generation service used for query rewriting
type LLMSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"`
	BaseURL  string     `json:"base_url,omitempty"`

	// Timeout bounds each rewrite request. Zero means the adapter's default.
	Timeout time.Duration `json:"-"`
}

// IsConfigured returns true if LLM settings are properly configured
func (l *LLMSettings) IsConfigured() bool {
	if l.Provider == "" || l.Model == "" {
		return false
	}
	if l.Provider == AIProviderOllama {
		return true
	}
	return l.APIKey != ""
}

// RetrieveOptions controls a retrieval request.
type RetrieveOptions struct {
	// TopK is the maximum number of passages to return.
	TopK int `json:"top_k"`

	// MinScore excludes passages scoring below the threshold. Zero disables
	// the filter.
	MinScore float32 `json:"min_score"`

	// Rewrite asks for the query to be rewritten for retrieval before
	// embedding. Ignored when no LLM service is configured.
	Rewrite bool `json:"rewrite"`
}
