// Package worker runs the pool of goroutines that consume embedding jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
)

// Pipeline is the handler set the worker dispatches jobs to.
type Pipeline interface {
	PrepareDocument(ctx context.Context, documentID int64) error
	EmbedChunk(ctx context.Context, payload domain.JobPayload) error
	DeleteDocumentEmbeddings(ctx context.Context, documentID int64) (int, error)
}

// Worker processes embedding jobs from the job queue.
// A shared rate limiter gates job starts across the whole pool so the
// embedding provider's rate limit holds regardless of concurrency.
type Worker struct {
	queue    driven.JobQueue
	pipeline Pipeline
	limiter  *rate.Limiter
	logger   *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config holds configuration for the worker.
type Config struct {
	Queue    driven.JobQueue
	Pipeline Pipeline
	Logger   *slog.Logger

	// Concurrency is the number of concurrent job processors
	Concurrency int

	// DequeueTimeout is the seconds to wait for a job before checking again
	DequeueTimeout int

	// RatePerSecond limits job starts across all processors. Zero or
	// negative disables rate limiting.
	RatePerSecond float64

	// RateBurst is the limiter burst size; defaults to Concurrency.
	RateBurst int
}

// New creates a new job worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = concurrency
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &Worker{
		queue:          cfg.Queue,
		pipeline:       cfg.Pipeline,
		limiter:        limiter,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker. In-flight jobs finish; unclaimed jobs
// stay queued for the next start.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		job, err := w.queue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue job", "error", err)
			time.Sleep(time.Second) // Back off on error
			continue
		}

		if job == nil {
			continue
		}

		// Gate the job start across the whole pool
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				// Context cancelled while waiting; give the job back
				if nackErr := w.queue.Nack(ctx, job.ID, "worker shutting down"); nackErr != nil {
					logger.Error("failed to nack job on shutdown", "nack_error", nackErr)
				}
				return
			}
		}

		w.processJob(ctx, job, logger)
	}
}

// processJob processes a single job.
func (w *Worker) processJob(ctx context.Context, job *domain.Job, logger *slog.Logger) {
	logger = logger.With(
		"job_id", job.ID,
		"job_type", job.Type,
		"document_id", job.Payload.DocumentID,
		"attempt", job.Attempts,
	)
	logger.Info("processing job")

	startTime := time.Now()
	var err error

	switch job.Type {
	case domain.JobTypePrepareEmbeddings:
		err = w.pipeline.PrepareDocument(ctx, job.Payload.DocumentID)
	case domain.JobTypeEmbedChunk:
		err = w.pipeline.EmbedChunk(ctx, job.Payload)
	case domain.JobTypeDeleteEmbeddings:
		_, err = w.pipeline.DeleteDocumentEmbeddings(ctx, job.Payload.DocumentID)
	default:
		err = fmt.Errorf("unknown job type: %s", job.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		if !domain.IsRetryable(err) {
			logger.Error("job failed terminally",
				"duration", duration,
				"error", err,
			)
			if failErr := w.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
				logger.Error("failed to fail job", "fail_error", failErr)
			}
			return
		}

		logger.Error("job failed",
			"duration", duration,
			"error", err,
		)
		if nackErr := w.queue.Nack(ctx, job.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack job", "nack_error", nackErr)
		}
		return
	}

	logger.Info("job completed", "duration", duration)

	if ackErr := w.queue.Ack(ctx, job.ID); ackErr != nil {
		logger.Error("failed to ack job", "ack_error", ackErr)
	}
}

// Health returns health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.queue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
