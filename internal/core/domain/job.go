package domain

import (
	"fmt"
	"time"
)

// JobType identifies the kind of embedding pipeline job.
type JobType string

const (
	// JobTypePrepareEmbeddings chunks a document and fans out embed-chunk jobs.
	JobTypePrepareEmbeddings JobType = "prepare-embeddings"
	// JobTypeEmbedChunk embeds one chunk and upserts its point.
	JobTypeEmbedChunk JobType = "embed-chunk"
	// JobTypeDeleteEmbeddings removes all points for a document.
	JobTypeDeleteEmbeddings JobType = "delete-embeddings"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusWaiting   JobStatus = "waiting"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

const (
	// DefaultMaxAttempts is how often a job is tried before terminal failure.
	DefaultMaxAttempts = 3

	// retryBackoffBase is the first retry delay; doubles per attempt.
	retryBackoffBase = time.Second
	// retryBackoffCap bounds the exponential backoff.
	retryBackoffCap = 5 * time.Minute
)

// JobPayload holds the type-specific data of a job. DocumentID is set for
// every type; Chunk and Metadata only for embed-chunk jobs.
type JobPayload struct {
	DocumentID int64          `json:"document_id"`
	ChunkIndex int            `json:"chunk_index,omitempty"`
	Chunk      *Chunk         `json:"chunk,omitempty"`
	Metadata   *ChunkMetadata `json:"metadata,omitempty"`
}

// Job is a durable unit of work processed by the worker pool. Delivery is
// at-least-once; every handler must be idempotent.
type Job struct {
	ID           string     `json:"id"`
	Type         JobType    `json:"type"`
	Payload      JobPayload `json:"payload"`
	Status       JobStatus  `json:"status"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `json:"max_attempts"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ScheduledFor time.Time  `json:"scheduled_for"`
}

// NewJob creates a job with default retry settings. The ID incorporates the
// document, chunk index and enqueue time so concurrent enqueues for the same
// logical change never collide; the idempotent point upsert absorbs any
// duplicate processing that results.
func NewJob(jobType JobType, payload JobPayload) *Job {
	now := time.Now()
	return &Job{
		ID:           fmt.Sprintf("%s:%d:%d:%d", jobType, payload.DocumentID, payload.ChunkIndex, now.UnixNano()),
		Type:         jobType,
		Payload:      payload,
		Status:       JobStatusWaiting,
		MaxAttempts:  DefaultMaxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewPrepareEmbeddingsJob creates a job that chunks a document and fans out.
func NewPrepareEmbeddingsJob(documentID int64) *Job {
	return NewJob(JobTypePrepareEmbeddings, JobPayload{DocumentID: documentID})
}

// NewEmbedChunkJob creates a job that embeds a single chunk.
func NewEmbedChunkJob(documentID int64, chunk Chunk, meta ChunkMetadata) *Job {
	return NewJob(JobTypeEmbedChunk, JobPayload{
		DocumentID: documentID,
		ChunkIndex: chunk.Index,
		Chunk:      &chunk,
		Metadata:   &meta,
	})
}

// NewDeleteEmbeddingsJob creates a job that removes all points for a document.
func NewDeleteEmbeddingsJob(documentID int64) *Job {
	return NewJob(JobTypeDeleteEmbeddings, JobPayload{DocumentID: documentID})
}

// CanRetry returns true if the job has attempts left.
func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// IsDelayed reports whether the job is parked waiting for its retry time.
func (j *Job) IsDelayed(now time.Time) bool {
	return j.Status == JobStatusWaiting && j.ScheduledFor.After(now)
}

// MarkActive transitions the job to active and counts the attempt.
func (j *Job) MarkActive() {
	now := time.Now()
	j.Status = JobStatusActive
	j.StartedAt = &now
	j.UpdatedAt = now
	j.Attempts++
}

// MarkCompleted transitions the job to completed.
func (j *Job) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
	j.Error = ""
}

// MarkFailed transitions the job to terminal failure. Failed jobs are
// retained for operator inspection, distinct from completed ones.
func (j *Job) MarkFailed(reason string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.Error = reason
}

// Retry re-schedules the job with exponential backoff.
func (j *Job) Retry(reason string) {
	now := time.Now()
	j.Status = JobStatusWaiting
	j.UpdatedAt = now
	j.Error = reason

	backoff := retryBackoffBase << j.Attempts
	if backoff > retryBackoffCap {
		backoff = retryBackoffCap
	}
	j.ScheduledFor = now.Add(backoff)
}
