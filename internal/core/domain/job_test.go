package domain

import (
	"testing"
	"time"
)

func TestNewJob(t *testing.T) {
	job := NewPrepareEmbeddingsJob(42)

	if job.ID == "" {
		t.Error("expected non-empty ID")
	}
	if job.Type != JobTypePrepareEmbeddings {
		t.Errorf("expected type %s, got %s", JobTypePrepareEmbeddings, job.Type)
	}
	if job.Payload.DocumentID != 42 {
		t.Errorf("expected document ID 42, got %d", job.Payload.DocumentID)
	}
	if job.Status != JobStatusWaiting {
		t.Errorf("expected status %s, got %s", JobStatusWaiting, job.Status)
	}
	if job.Attempts != 0 {
		t.Errorf("expected attempts 0, got %d", job.Attempts)
	}
	if job.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("expected max attempts %d, got %d", DefaultMaxAttempts, job.MaxAttempts)
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestNewJob_UniqueIDs(t *testing.T) {
	a := NewPrepareEmbeddingsJob(1)
	b := NewPrepareEmbeddingsJob(1)

	if a.ID == b.ID {
		t.Error("expected unique job IDs for same document")
	}
}

func TestNewEmbedChunkJob(t *testing.T) {
	chunk := Chunk{Index: 3, Text: "body", SectionHeading: "## Section"}
	meta := ChunkMetadata{Title: "Doc", ChunkTotal: 5}

	job := NewEmbedChunkJob(7, chunk, meta)

	if job.Type != JobTypeEmbedChunk {
		t.Errorf("expected type %s, got %s", JobTypeEmbedChunk, job.Type)
	}
	if job.Payload.ChunkIndex != 3 {
		t.Errorf("expected chunk index 3, got %d", job.Payload.ChunkIndex)
	}
	if job.Payload.Chunk == nil || job.Payload.Chunk.Text != "body" {
		t.Error("expected chunk to travel in payload")
	}
	if job.Payload.Metadata == nil || job.Payload.Metadata.ChunkTotal != 5 {
		t.Error("expected metadata to travel in payload")
	}
}

func TestJob_MarkActive(t *testing.T) {
	job := NewPrepareEmbeddingsJob(1)

	job.MarkActive()

	if job.Status != JobStatusActive {
		t.Errorf("expected status %s, got %s", JobStatusActive, job.Status)
	}
	if job.Attempts != 1 {
		t.Errorf("expected attempts 1, got %d", job.Attempts)
	}
	if job.StartedAt == nil {
		t.Error("expected StartedAt to be set")
	}
}

func TestJob_MarkCompleted(t *testing.T) {
	job := NewPrepareEmbeddingsJob(1)
	job.MarkActive()

	job.MarkCompleted()

	if job.Status != JobStatusCompleted {
		t.Errorf("expected status %s, got %s", JobStatusCompleted, job.Status)
	}
	if job.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if job.Error != "" {
		t.Errorf("expected error cleared, got %q", job.Error)
	}
}

func TestJob_MarkFailed(t *testing.T) {
	job := NewPrepareEmbeddingsJob(1)

	job.MarkFailed("provider down")

	if job.Status != JobStatusFailed {
		t.Errorf("expected status %s, got %s", JobStatusFailed, job.Status)
	}
	if job.Error != "provider down" {
		t.Errorf("expected error retained, got %q", job.Error)
	}
}

func TestJob_CanRetry(t *testing.T) {
	job := NewPrepareEmbeddingsJob(1)

	for i := 0; i < DefaultMaxAttempts; i++ {
		if !job.CanRetry() {
			t.Fatalf("expected retryable at attempt %d", job.Attempts)
		}
		job.MarkActive()
	}

	if job.CanRetry() {
		t.Errorf("expected no retry after %d attempts", job.Attempts)
	}
}

func TestJob_Retry_Backoff(t *testing.T) {
	job := NewPrepareEmbeddingsJob(1)

	job.MarkActive() // attempt 1
	job.Retry("timeout")

	if job.Status != JobStatusWaiting {
		t.Errorf("expected status %s, got %s", JobStatusWaiting, job.Status)
	}
	delay := time.Until(job.ScheduledFor)
	// attempt 1 -> 1s << 1 = 2s
	if delay < time.Second || delay > 3*time.Second {
		t.Errorf("expected ~2s backoff, got %s", delay)
	}

	job.MarkActive() // attempt 2
	job.Retry("timeout")

	delay2 := time.Until(job.ScheduledFor)
	if delay2 <= delay {
		t.Errorf("expected growing backoff, got %s then %s", delay, delay2)
	}
}

func TestJob_Retry_BackoffCapped(t *testing.T) {
	job := NewPrepareEmbeddingsJob(1)
	job.MaxAttempts = 100
	job.Attempts = 30

	job.Retry("timeout")

	delay := time.Until(job.ScheduledFor)
	if delay > 5*time.Minute+time.Second {
		t.Errorf("expected backoff capped at 5m, got %s", delay)
	}
}

func TestJob_IsDelayed(t *testing.T) {
	job := NewPrepareEmbeddingsJob(1)
	now := time.Now()

	if job.IsDelayed(now) {
		t.Error("fresh job should not be delayed")
	}

	job.MarkActive()
	job.Retry("timeout")

	if !job.IsDelayed(now) {
		t.Error("retrying job should be delayed")
	}
	if job.IsDelayed(now.Add(time.Hour)) {
		t.Error("job past its retry time should not be delayed")
	}
}
