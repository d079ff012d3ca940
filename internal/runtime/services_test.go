package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
)

type fakeEmbedding struct {
	healthErr error
	closed    bool
}

func (f *fakeEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func (f *fakeEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return []float32{}, nil
}

func (f *fakeEmbedding) Dimensions() int { return 8 }
func (f *fakeEmbedding) Model() string   { return "fake-embedding" }

func (f *fakeEmbedding) HealthCheck(ctx context.Context) error { return f.healthErr }

func (f *fakeEmbedding) Close() error {
	f.closed = true
	return nil
}

type fakeLLM struct {
	pingErr error
	closed  bool
}

func (f *fakeLLM) RewriteQuery(ctx context.Context, query string) (string, error) {
	return query, nil
}

func (f *fakeLLM) Model() string { return "fake-llm" }

func (f *fakeLLM) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeLLM) Close() error {
	f.closed = true
	return nil
}

func newTestServices() *Services {
	return NewServices(domain.NewRuntimeConfig("test", "memory"))
}

func TestServices_SetEmbeddingService(t *testing.T) {
	services := newTestServices()
	if services.EmbeddingService() != nil {
		t.Fatal("expected nil embedding service initially")
	}
	if services.Config().CanIndex() {
		t.Error("expected indexing unavailable before embedding is set")
	}

	svc := &fakeEmbedding{}
	services.SetEmbeddingService(svc)

	if services.EmbeddingService() != svc {
		t.Error("expected registered embedding service")
	}
	if !services.Config().CanIndex() {
		t.Error("expected indexing available once embedding is set")
	}
}

func TestServices_SetEmbeddingService_ClosesPrevious(t *testing.T) {
	services := newTestServices()

	old := &fakeEmbedding{}
	services.SetEmbeddingService(old)

	replacement := &fakeEmbedding{}
	services.SetEmbeddingService(replacement)

	if !old.closed {
		t.Error("expected previous embedding service to be closed")
	}
	if replacement.closed {
		t.Error("replacement must stay open")
	}
}

func TestServices_SetEmbeddingService_NilClears(t *testing.T) {
	services := newTestServices()
	services.SetEmbeddingService(&fakeEmbedding{})

	services.SetEmbeddingService(nil)

	if services.EmbeddingService() != nil {
		t.Error("expected embedding service cleared")
	}
	if services.Config().CanIndex() {
		t.Error("expected indexing unavailable after clearing")
	}
}

func TestServices_ValidateAndSetEmbedding(t *testing.T) {
	services := newTestServices()

	healthy := &fakeEmbedding{}
	if err := services.ValidateAndSetEmbedding(context.Background(), healthy); err != nil {
		t.Fatalf("expected healthy service accepted: %v", err)
	}
	if services.EmbeddingService() != healthy {
		t.Error("expected healthy service registered")
	}
}

func TestServices_ValidateAndSetEmbedding_RejectsUnhealthy(t *testing.T) {
	services := newTestServices()
	existing := &fakeEmbedding{}
	services.SetEmbeddingService(existing)

	broken := &fakeEmbedding{healthErr: errors.New("connection refused")}
	err := services.ValidateAndSetEmbedding(context.Background(), broken)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !broken.closed {
		t.Error("expected rejected service to be closed")
	}
	if services.EmbeddingService() != existing {
		t.Error("expected existing service to survive a failed swap")
	}
}

func TestServices_ValidateAndSetLLM(t *testing.T) {
	services := newTestServices()

	if err := services.ValidateAndSetLLM(context.Background(), &fakeLLM{}); err != nil {
		t.Fatalf("expected healthy llm accepted: %v", err)
	}
	if !services.Config().CanRewriteQueries() {
		t.Error("expected query rewriting available")
	}

	broken := &fakeLLM{pingErr: errors.New("timeout")}
	if err := services.ValidateAndSetLLM(context.Background(), broken); err == nil {
		t.Fatal("expected ping error")
	}
	if !broken.closed {
		t.Error("expected rejected llm to be closed")
	}
}

func TestServices_Close(t *testing.T) {
	services := newTestServices()

	embedding := &fakeEmbedding{}
	llm := &fakeLLM{}
	services.SetEmbeddingService(embedding)
	services.SetLLMService(llm)

	if err := services.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if !embedding.closed || !llm.closed {
		t.Error("expected all services closed")
	}
	if services.EmbeddingService() != nil || services.LLMService() != nil {
		t.Error("expected registry emptied")
	}
	if services.Config().CanIndex() || services.Config().CanRewriteQueries() {
		t.Error("expected capability flags cleared")
	}
}
