package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/adapters/driven/vectorstore/memory"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven/mocks"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driving"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/runtime"
)

type retrievalFixture struct {
	retrieval  driving.RetrievalService
	vecStore   *memory.Store
	embedding  *mocks.MockEmbeddingService
	llm        *mocks.MockLLMService
	collection string
}

func newRetrievalFixture(t *testing.T) *retrievalFixture {
	t.Helper()

	vecStore := memory.NewStore()
	embedding := mocks.NewMockEmbeddingService()
	embedding.SetDimensions(3)
	llm := mocks.NewMockLLMService()

	services := runtime.NewServices(domain.NewRuntimeConfig("test", "memory"))
	services.SetEmbeddingService(embedding)
	services.SetLLMService(llm)

	collection := domain.CollectionName("test", embedding.Model(), "documents")
	err := vecStore.CreateCollection(context.Background(), collection, driven.CollectionParams{
		Dimension: 3,
		Distance:  driven.DistanceCosine,
	})
	if err != nil {
		t.Fatalf("failed to create collection: %v", err)
	}

	return &retrievalFixture{
		retrieval:  NewRetrievalService(vecStore, services, "test", "documents", nil),
		vecStore:   vecStore,
		embedding:  embedding,
		llm:        llm,
		collection: collection,
	}
}

func (f *retrievalFixture) putPoint(t *testing.T, documentID int64, chunkIndex int, heading, text string, vector []float32) {
	t.Helper()
	point := &domain.Point{
		ID:     domain.PointID(documentID, chunkIndex),
		Vector: vector,
		Payload: domain.PointPayload{
			DocumentID:     documentID,
			Title:          "Flu Guide",
			SectionHeading: heading,
			ChunkIndex:     chunkIndex,
			ChunkTotal:     2,
			CreatedAt:      time.Now().UTC(),
			Type:           domain.PointTypeDocumentChunk,
		},
		Content: text,
	}
	if err := f.vecStore.UpsertPoints(context.Background(), f.collection, []*domain.Point{point}); err != nil {
		t.Fatalf("failed to upsert point: %v", err)
	}
}

func TestRetrievalService_Retrieve_RanksByScore(t *testing.T) {
	f := newRetrievalFixture(t)

	f.putPoint(t, 1, 0, "Intro", "General overview.", []float32{0, 1, 0})
	f.putPoint(t, 1, 1, "Treatment", "Rest and fluids.", []float32{1, 0, 0})
	f.embedding.SetVector("how to treat flu", []float32{1, 0, 0})

	passages, err := f.retrieval.Retrieve(context.Background(), "how to treat flu", domain.RetrieveOptions{})
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}

	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	if passages[0].SectionHeading != "Treatment" {
		t.Errorf("expected Treatment ranked first, got %q", passages[0].SectionHeading)
	}
	if passages[0].Score <= passages[1].Score {
		t.Errorf("expected descending scores, got %f then %f", passages[0].Score, passages[1].Score)
	}
	if passages[0].Text != "Rest and fluids." {
		t.Errorf("expected chunk text in passage, got %q", passages[0].Text)
	}
	if passages[0].DocumentID != 1 || passages[0].Title != "Flu Guide" {
		t.Errorf("payload fields not mapped: %+v", passages[0])
	}
}

func TestRetrievalService_Retrieve_EmptyQuery(t *testing.T) {
	f := newRetrievalFixture(t)

	_, err := f.retrieval.Retrieve(context.Background(), "", domain.RetrieveOptions{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input error, got %v", err)
	}
}

func TestRetrievalService_Retrieve_MissingCollectionReturnsEmpty(t *testing.T) {
	vecStore := memory.NewStore()
	embedding := mocks.NewMockEmbeddingService()
	services := runtime.NewServices(domain.NewRuntimeConfig("test", "memory"))
	services.SetEmbeddingService(embedding)
	retrieval := NewRetrievalService(vecStore, services, "test", "documents", nil)

	passages, err := retrieval.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})
	if err != nil {
		t.Fatalf("missing collection must not error: %v", err)
	}
	if len(passages) != 0 {
		t.Errorf("expected empty result, got %d passages", len(passages))
	}
}

func TestRetrievalService_Retrieve_TopKDefault(t *testing.T) {
	f := newRetrievalFixture(t)

	for i := 0; i < 8; i++ {
		f.putPoint(t, 1, i, fmt.Sprintf("Section %d", i), "text", []float32{1, 0, 0})
	}
	f.embedding.SetVector("q", []float32{1, 0, 0})

	passages, err := f.retrieval.Retrieve(context.Background(), "q", domain.RetrieveOptions{})
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(passages) != defaultTopK {
		t.Errorf("expected default top-k %d, got %d", defaultTopK, len(passages))
	}
}

func TestRetrievalService_Retrieve_MinScoreFilters(t *testing.T) {
	f := newRetrievalFixture(t)

	f.putPoint(t, 1, 0, "Close", "close text", []float32{1, 0, 0})
	f.putPoint(t, 1, 1, "Far", "far text", []float32{0, 1, 0})
	f.embedding.SetVector("q", []float32{1, 0, 0})

	passages, err := f.retrieval.Retrieve(context.Background(), "q", domain.RetrieveOptions{MinScore: 0.9})
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(passages) != 1 || passages[0].SectionHeading != "Close" {
		t.Errorf("expected only the close passage, got %+v", passages)
	}
}

func TestRetrievalService_Retrieve_RewriteUsed(t *testing.T) {
	f := newRetrievalFixture(t)

	f.putPoint(t, 1, 0, "Treatment", "Rest and fluids.", []float32{1, 0, 0})
	f.llm.SetRewrite("flu?", "influenza treatment")
	f.embedding.SetVector("influenza treatment", []float32{1, 0, 0})
	f.embedding.SetVector("flu?", []float32{0, 1, 0})

	passages, err := f.retrieval.Retrieve(context.Background(), "flu?", domain.RetrieveOptions{Rewrite: true, MinScore: 0.9})
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if f.llm.Calls() != 1 {
		t.Errorf("expected one rewrite call, got %d", f.llm.Calls())
	}
	if len(passages) != 1 {
		t.Fatalf("expected the rewritten query to match, got %d passages", len(passages))
	}
}

func TestRetrievalService_Retrieve_RewriteFailureDegrades(t *testing.T) {
	f := newRetrievalFixture(t)

	f.putPoint(t, 1, 0, "Treatment", "Rest and fluids.", []float32{1, 0, 0})
	f.llm.SetFailNext(true)
	f.embedding.SetVector("flu treatment", []float32{1, 0, 0})

	passages, err := f.retrieval.Retrieve(context.Background(), "flu treatment", domain.RetrieveOptions{Rewrite: true})
	if err != nil {
		t.Fatalf("rewrite failure must degrade, not fail: %v", err)
	}
	if len(passages) != 1 {
		t.Errorf("expected raw query to still match, got %d passages", len(passages))
	}
}

func TestRetrievalService_Retrieve_RewriteSkippedWhenDisabled(t *testing.T) {
	f := newRetrievalFixture(t)
	f.embedding.SetVector("q", []float32{1, 0, 0})

	if _, err := f.retrieval.Retrieve(context.Background(), "q", domain.RetrieveOptions{}); err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if f.llm.Calls() != 0 {
		t.Errorf("expected no rewrite calls, got %d", f.llm.Calls())
	}
}
