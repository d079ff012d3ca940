package worker

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven/mocks"
)

// stubPipeline scripts per-call results for each handler.
type stubPipeline struct {
	mu sync.Mutex

	prepareErrs []error
	embedErrs   []error
	deleteErrs  []error

	prepareCalls int
	embedCalls   int
	deleteCalls  int
}

func (p *stubPipeline) PrepareDocument(ctx context.Context, documentID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prepareCalls++
	return pop(&p.prepareErrs)
}

func (p *stubPipeline) EmbedChunk(ctx context.Context, payload domain.JobPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.embedCalls++
	return pop(&p.embedErrs)
}

func (p *stubPipeline) DeleteDocumentEmbeddings(ctx context.Context, documentID int64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleteCalls++
	return 0, pop(&p.deleteErrs)
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

// drain processes jobs until the queue is empty.
func drain(t *testing.T, w *Worker, queue *mocks.MockJobQueue) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		job, err := queue.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue failed: %v", err)
		}
		if job == nil {
			return
		}
		w.processJob(ctx, job, slog.Default())
	}
	t.Fatal("queue did not drain")
}

func newTestWorker(queue *mocks.MockJobQueue, pipeline Pipeline) *Worker {
	return New(Config{
		Queue:    queue,
		Pipeline: pipeline,
		Logger:   slog.Default(),
	})
}

func TestWorker_ProcessJob_Prepare(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	pipeline := &stubPipeline{}
	w := newTestWorker(queue, pipeline)

	job := domain.NewPrepareEmbeddingsJob(42)
	queue.Enqueue(context.Background(), job)

	drain(t, w, queue)

	if pipeline.prepareCalls != 1 {
		t.Errorf("expected 1 prepare call, got %d", pipeline.prepareCalls)
	}
	stored, _ := queue.GetJob(context.Background(), job.ID)
	if stored.Status != domain.JobStatusCompleted {
		t.Errorf("expected completed, got %s", stored.Status)
	}
}

func TestWorker_ProcessJob_DispatchByType(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	pipeline := &stubPipeline{}
	w := newTestWorker(queue, pipeline)

	ctx := context.Background()
	queue.Enqueue(ctx, domain.NewPrepareEmbeddingsJob(1))
	queue.Enqueue(ctx, domain.NewEmbedChunkJob(1, domain.Chunk{Index: 0, Text: "t"}, domain.ChunkMetadata{ChunkTotal: 1}))
	queue.Enqueue(ctx, domain.NewDeleteEmbeddingsJob(1))

	drain(t, w, queue)

	if pipeline.prepareCalls != 1 || pipeline.embedCalls != 1 || pipeline.deleteCalls != 1 {
		t.Errorf("expected one call per type, got prepare=%d embed=%d delete=%d",
			pipeline.prepareCalls, pipeline.embedCalls, pipeline.deleteCalls)
	}
}

func TestWorker_ProcessJob_FailTwiceSucceedThird(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	pipeline := &stubPipeline{
		embedErrs: []error{
			&domain.EmbeddingProviderError{Provider: "openai", Message: "timeout"},
			&domain.EmbeddingProviderError{Provider: "openai", Message: "timeout"},
			nil,
		},
	}
	w := newTestWorker(queue, pipeline)

	job := domain.NewEmbedChunkJob(42, domain.Chunk{Index: 0, Text: "t"}, domain.ChunkMetadata{ChunkTotal: 1})
	queue.Enqueue(context.Background(), job)

	drain(t, w, queue)

	if pipeline.embedCalls != 3 {
		t.Errorf("expected 3 attempts, got %d", pipeline.embedCalls)
	}
	stored, _ := queue.GetJob(context.Background(), job.ID)
	if stored.Status != domain.JobStatusCompleted {
		t.Errorf("expected completed after retries, got %s", stored.Status)
	}
	if stored.Attempts != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", stored.Attempts)
	}
}

func TestWorker_ProcessJob_ExhaustedAttemptsFailTerminal(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	pipeline := &stubPipeline{
		embedErrs: []error{
			&domain.EmbeddingProviderError{Provider: "openai", Message: "down"},
			&domain.EmbeddingProviderError{Provider: "openai", Message: "down"},
			&domain.EmbeddingProviderError{Provider: "openai", Message: "down"},
		},
	}
	w := newTestWorker(queue, pipeline)

	job := domain.NewEmbedChunkJob(42, domain.Chunk{Index: 0, Text: "t"}, domain.ChunkMetadata{ChunkTotal: 1})
	queue.Enqueue(context.Background(), job)

	drain(t, w, queue)

	if pipeline.embedCalls != domain.DefaultMaxAttempts {
		t.Errorf("expected %d attempts, got %d", domain.DefaultMaxAttempts, pipeline.embedCalls)
	}
	stored, _ := queue.GetJob(context.Background(), job.ID)
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("expected terminal failure, got %s", stored.Status)
	}
}

func TestWorker_ProcessJob_NonRetryableFailsImmediately(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	pipeline := &stubPipeline{
		prepareErrs: []error{
			&domain.ChunkingError{DocumentID: 42, Reason: "unknown block type"},
		},
	}
	w := newTestWorker(queue, pipeline)

	job := domain.NewPrepareEmbeddingsJob(42)
	queue.Enqueue(context.Background(), job)

	drain(t, w, queue)

	if pipeline.prepareCalls != 1 {
		t.Errorf("expected single attempt for terminal error, got %d", pipeline.prepareCalls)
	}
	stored, _ := queue.GetJob(context.Background(), job.ID)
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("expected failed, got %s", stored.Status)
	}
}

func TestWorker_ProcessJob_UnknownType(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	pipeline := &stubPipeline{}
	w := newTestWorker(queue, pipeline)

	job := domain.NewJob("bogus-type", domain.JobPayload{DocumentID: 1})
	queue.Enqueue(context.Background(), job)

	drain(t, w, queue)

	stored, _ := queue.GetJob(context.Background(), job.ID)
	if stored.Status == domain.JobStatusCompleted {
		t.Error("unknown job type must not complete")
	}
	if pipeline.prepareCalls+pipeline.embedCalls+pipeline.deleteCalls != 0 {
		t.Error("unknown job type must not reach the pipeline")
	}
}

func TestWorker_StartStop(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	pipeline := &stubPipeline{}
	w := New(Config{
		Queue:       queue,
		Pipeline:    pipeline,
		Logger:      slog.Default(),
		Concurrency: 2,
	})

	ctx := context.Background()
	job := domain.NewPrepareEmbeddingsJob(1)
	queue.Enqueue(ctx, job)

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stored, _ := queue.GetJob(ctx, job.ID)
		if stored != nil && stored.Status == domain.JobStatusCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	w.Stop()

	stored, _ := queue.GetJob(ctx, job.ID)
	if stored.Status != domain.JobStatusCompleted {
		t.Errorf("expected job completed before stop, got %s", stored.Status)
	}
}

func TestWorker_Health(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	w := newTestWorker(queue, &stubPipeline{})

	health := w.Health(context.Background())
	if health.Running {
		t.Error("expected not running before start")
	}
	if !health.QueueHealth {
		t.Error("expected healthy queue")
	}
}
