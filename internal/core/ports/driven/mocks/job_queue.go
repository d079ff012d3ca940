package mocks

import (
	"context"
	"sync"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
)

// MockJobQueue is an in-memory JobQueue for testing. Jobs are delivered in
// FIFO order; Ack/Nack/Fail update the retained job record like the real
// queue does.
type MockJobQueue struct {
	mu       sync.Mutex
	pending  []*domain.Job
	jobs     map[string]*domain.Job
	enqueued []*domain.Job

	// EnqueueErr, when set, fails every enqueue (for error-path tests).
	EnqueueErr error

	// EnqueueFailFor fails enqueues for specific document IDs.
	EnqueueFailFor map[int64]error
}

// NewMockJobQueue creates a new MockJobQueue
func NewMockJobQueue() *MockJobQueue {
	return &MockJobQueue{
		jobs:           make(map[string]*domain.Job),
		EnqueueFailFor: make(map[int64]error),
	}
}

func (m *MockJobQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	if err, ok := m.EnqueueFailFor[job.Payload.DocumentID]; ok {
		return err
	}
	m.pending = append(m.pending, job)
	m.jobs[job.ID] = job
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *MockJobQueue) EnqueueBatch(ctx context.Context, jobs []*domain.Job) error {
	for _, j := range jobs {
		if err := m.Enqueue(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockJobQueue) Dequeue(ctx context.Context) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil, nil
	}
	job := m.pending[0]
	m.pending = m.pending[1:]
	job.MarkActive()
	return job, nil
}

func (m *MockJobQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Job, error) {
	return m.Dequeue(ctx)
}

func (m *MockJobQueue) Ack(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[jobID]; ok {
		job.MarkCompleted()
	}
	return nil
}

func (m *MockJobQueue) Nack(ctx context.Context, jobID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.CanRetry() {
		job.Retry(reason)
		m.pending = append(m.pending, job)
	} else {
		job.MarkFailed(reason)
	}
	return nil
}

func (m *MockJobQueue) Fail(ctx context.Context, jobID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.MarkFailed(reason)
	return nil
}

func (m *MockJobQueue) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (m *MockJobQueue) ListJobs(ctx context.Context, filter driven.JobFilter) ([]*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Job
	for _, job := range m.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		if filter.DocumentID != 0 && job.Payload.DocumentID != filter.DocumentID {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func (m *MockJobQueue) PurgeJobs(ctx context.Context, olderThan int) (int, error) {
	return 0, nil
}

func (m *MockJobQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &driven.QueueStats{}
	for _, job := range m.jobs {
		switch job.Status {
		case domain.JobStatusWaiting:
			stats.WaitingCount++
		case domain.JobStatusActive:
			stats.ActiveCount++
		case domain.JobStatusCompleted:
			stats.CompletedCount++
		case domain.JobStatusFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

func (m *MockJobQueue) Ping(ctx context.Context) error {
	return nil
}

func (m *MockJobQueue) Close() error {
	return nil
}

// Helper methods for testing

// Pending returns the jobs waiting for delivery.
func (m *MockJobQueue) Pending() []*domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Job, len(m.pending))
	copy(out, m.pending)
	return out
}

// Enqueued returns every job the queue has seen, in enqueue order.
func (m *MockJobQueue) Enqueued() []*domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Job, len(m.enqueued))
	copy(out, m.enqueued)
	return out
}

// Reset drops all queue state.
func (m *MockJobQueue) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	m.enqueued = nil
	m.jobs = make(map[string]*domain.Job)
}
