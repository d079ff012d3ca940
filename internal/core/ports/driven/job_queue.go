package driven

import (
	"context"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
)

// JobQueue handles durable queuing of embedding pipeline jobs.
// Delivery is at-least-once; handlers are required to be idempotent.
type JobQueue interface {
	// Enqueue adds a job to the queue for processing.
	Enqueue(ctx context.Context, job *domain.Job) error

	// EnqueueBatch adds multiple jobs to the queue atomically.
	EnqueueBatch(ctx context.Context, jobs []*domain.Job) error

	// Dequeue retrieves the next available job for processing, blocking
	// until one is available or the context is cancelled. The job is marked
	// active and will not be delivered to other workers while claimed.
	Dequeue(ctx context.Context) (*domain.Job, error)

	// DequeueWithTimeout retrieves the next available job, waiting up to
	// timeout seconds. Returns nil, nil when no job became available.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Job, error)

	// Ack acknowledges successful completion of a job.
	Ack(ctx context.Context, jobID string) error

	// Nack reports a retryable failure. The job is re-scheduled with
	// exponential backoff, or marked failed once attempts are exhausted.
	Nack(ctx context.Context, jobID string, reason string) error

	// Fail marks a job as terminally failed regardless of remaining
	// attempts. Used for errors that re-running cannot fix.
	Fail(ctx context.Context, jobID string, reason string) error

	// GetJob retrieves a job by ID (for status checking).
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)

	// ListJobs retrieves jobs matching the filter criteria.
	ListJobs(ctx context.Context, filter JobFilter) ([]*domain.Job, error)

	// PurgeJobs removes completed/failed jobs older than the given age in
	// seconds and returns how many were removed.
	PurgeJobs(ctx context.Context, olderThan int) (int, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}

// JobFilter specifies criteria for listing jobs
type JobFilter struct {
	// Status filters by job status (optional, empty means all)
	Status domain.JobStatus

	// Type filters by job type (optional, empty means all)
	Type domain.JobType

	// DocumentID filters by document (optional, zero means all)
	DocumentID int64

	// Limit is the maximum number of jobs to return
	Limit int

	// Offset is the number of jobs to skip (for pagination)
	Offset int
}

// QueueStats contains queue statistics. Waiting, delayed, active, completed
// and failed counts sum to the total number of enqueued jobs still known to
// the queue.
type QueueStats struct {
	// WaitingCount is the number of jobs ready to be claimed
	WaitingCount int64 `json:"waiting_count"`

	// DelayedCount is the number of jobs parked until their retry time
	DelayedCount int64 `json:"delayed_count"`

	// ActiveCount is the number of jobs currently being processed
	ActiveCount int64 `json:"active_count"`

	// CompletedCount is the number of successfully completed jobs
	CompletedCount int64 `json:"completed_count"`

	// FailedCount is the number of jobs that failed terminally
	FailedCount int64 `json:"failed_count"`
}
