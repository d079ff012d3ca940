// Package redis implements the JobQueue port on Redis Streams. Streams with
// a consumer group give reliable at-least-once delivery; a sorted set parks
// delayed jobs until their retry time.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
)

const (
	// Stream and group names
	jobStream   = "medpalm:embeddings:jobs"
	jobGroup    = "medpalm:embeddings:workers"
	delayedJobs = "medpalm:embeddings:delayed"

	// Key prefixes
	jobKeyPrefix = "medpalm:embeddings:job:"

	// Default consumer name prefix
	consumerPrefix = "worker-"

	// Retained job records expire after this TTL
	jobTTL = 24 * time.Hour

	// Claim timeout - how long before a delivery is considered abandoned
	claimTimeout = 5 * time.Minute
)

// Verify interface compliance
var _ driven.JobQueue = (*Queue)(nil)

// Queue implements JobQueue using Redis Streams.
type Queue struct {
	client       *redis.Client
	consumerName string
}

// NewQueue creates a new Redis-backed job queue.
// The consumerName should be unique per worker instance (e.g., hostname + PID).
func NewQueue(client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}

	q := &Queue{
		client:       client,
		consumerName: consumerName,
	}

	// Create consumer group if it doesn't exist
	ctx := context.Background()
	err := q.client.XGroupCreateMkStream(ctx, jobStream, jobGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return q, nil
}

// Enqueue adds a job to the queue for processing.
func (q *Queue) Enqueue(ctx context.Context, job *domain.Job) error {
	if job == nil {
		return errors.New("job is required")
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, jobKeyPrefix+job.ID, jobData, jobTTL)
	q.queueJob(ctx, pipe, job)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// EnqueueBatch adds multiple jobs to the queue atomically.
func (q *Queue) EnqueueBatch(ctx context.Context, jobs []*domain.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	pipe := q.client.Pipeline()
	for _, job := range jobs {
		if job == nil {
			continue
		}
		jobData, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
		}
		pipe.Set(ctx, jobKeyPrefix+job.ID, jobData, jobTTL)
		q.queueJob(ctx, pipe, job)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue batch: %w", err)
	}
	return nil
}

// queueJob routes a job to the stream or, when scheduled for later, the
// delayed set.
func (q *Queue) queueJob(ctx context.Context, pipe redis.Pipeliner, job *domain.Job) {
	if job.ScheduledFor.After(time.Now()) {
		pipe.ZAdd(ctx, delayedJobs, redis.Z{
			Score:  float64(job.ScheduledFor.Unix()),
			Member: job.ID,
		})
		return
	}
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: jobStream,
		Values: map[string]interface{}{
			"job_id":      job.ID,
			"type":        string(job.Type),
			"document_id": job.Payload.DocumentID,
		},
	})
}

// Dequeue retrieves the next available job, blocking until one is available
// or the context is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (*domain.Job, error) {
	return q.DequeueWithTimeout(ctx, 0) // 0 means block forever
}

// DequeueWithTimeout retrieves the next available job, waiting up to timeout seconds.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Job, error) {
	// First, promote any due delayed jobs
	if err := q.promoteDelayedJobs(ctx); err != nil {
		// Best effort; the next dequeue retries
		_ = err
	}

	// Try to claim abandoned deliveries first
	job, err := q.claimAbandonedJob(ctx)
	if err == nil && job != nil {
		return job, nil
	}

	blockDuration := time.Duration(timeout) * time.Second
	if timeout == 0 {
		blockDuration = 0 // Block forever
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    jobGroup,
		Consumer: q.consumerName,
		Streams:  []string{jobStream, ">"},
		Count:    1,
		Block:    blockDuration,
	}).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // No jobs available
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	msg := streams[0].Messages[0]
	jobID, ok := msg.Values["job_id"].(string)
	if !ok {
		// Invalid message, acknowledge and skip
		q.client.XAck(ctx, jobStream, jobGroup, msg.ID)
		return nil, nil
	}

	job, err = q.GetJob(ctx, jobID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get job data: %w", err)
	}
	if job == nil {
		// Job record expired, acknowledge and skip
		q.client.XAck(ctx, jobStream, jobGroup, msg.ID)
		return nil, nil
	}

	q.claimJob(ctx, job, msg.ID)
	return job, nil
}

// claimJob marks the job active and remembers its stream message for ack/nack.
func (q *Queue) claimJob(ctx context.Context, job *domain.Job, msgID string) {
	job.MarkActive()
	jobData, _ := json.Marshal(job)
	q.client.Set(ctx, jobKeyPrefix+job.ID, jobData, jobTTL)
	q.client.Set(ctx, jobKeyPrefix+job.ID+":msg", msgID, jobTTL)
}

// Ack acknowledges successful completion of a job.
func (q *Queue) Ack(ctx context.Context, jobID string) error {
	msgID, err := q.client.Get(ctx, jobKeyPrefix+jobID+":msg").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get message ID: %w", err)
	}

	pipe := q.client.Pipeline()

	if msgID != "" {
		pipe.XAck(ctx, jobStream, jobGroup, msgID)
		pipe.XDel(ctx, jobStream, msgID)
	}

	job, err := q.GetJob(ctx, jobID)
	if err == nil && job != nil {
		job.MarkCompleted()
		jobData, _ := json.Marshal(job)
		pipe.Set(ctx, jobKeyPrefix+jobID, jobData, jobTTL)
	}

	pipe.Del(ctx, jobKeyPrefix+jobID+":msg")

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

// Nack reports a retryable failure: the job is re-parked with backoff, or
// marked terminally failed once attempts run out.
func (q *Queue) Nack(ctx context.Context, jobID string, reason string) error {
	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	msgID, _ := q.client.Get(ctx, jobKeyPrefix+jobID+":msg").Result()

	pipe := q.client.Pipeline()

	// Acknowledge the current delivery; the retry is a fresh queue entry.
	if msgID != "" {
		pipe.XAck(ctx, jobStream, jobGroup, msgID)
		pipe.XDel(ctx, jobStream, msgID)
	}

	if job.CanRetry() {
		job.Retry(reason)
		jobData, _ := json.Marshal(job)
		pipe.Set(ctx, jobKeyPrefix+jobID, jobData, jobTTL)
		pipe.ZAdd(ctx, delayedJobs, redis.Z{
			Score:  float64(job.ScheduledFor.Unix()),
			Member: job.ID,
		})
	} else {
		job.MarkFailed(reason)
		jobData, _ := json.Marshal(job)
		pipe.Set(ctx, jobKeyPrefix+jobID, jobData, jobTTL)
	}

	pipe.Del(ctx, jobKeyPrefix+jobID+":msg")

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to nack job: %w", err)
	}
	return nil
}

// Fail marks a job as terminally failed regardless of remaining attempts.
// The record is retained for operator inspection.
func (q *Queue) Fail(ctx context.Context, jobID string, reason string) error {
	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	msgID, _ := q.client.Get(ctx, jobKeyPrefix+jobID+":msg").Result()

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, jobStream, jobGroup, msgID)
		pipe.XDel(ctx, jobStream, msgID)
	}

	job.MarkFailed(reason)
	jobData, _ := json.Marshal(job)
	pipe.Set(ctx, jobKeyPrefix+jobID, jobData, jobTTL)
	pipe.Del(ctx, jobKeyPrefix+jobID+":msg")

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (q *Queue) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	data, err := q.client.Get(ctx, jobKeyPrefix+jobID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job domain.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// ListJobs retrieves jobs matching the filter criteria.
// Note: this scans job records and is O(N) - use for operator tooling only.
func (q *Queue) ListJobs(ctx context.Context, filter driven.JobFilter) ([]*domain.Job, error) {
	var jobs []*domain.Job
	err := q.scanJobs(ctx, func(job *domain.Job) bool {
		if filter.Status != "" && job.Status != filter.Status {
			return true
		}
		if filter.Type != "" && job.Type != filter.Type {
			return true
		}
		if filter.DocumentID != 0 && job.Payload.DocumentID != filter.DocumentID {
			return true
		}
		jobs = append(jobs, job)
		return filter.Limit <= 0 || len(jobs) < filter.Limit+filter.Offset
	})
	if err != nil {
		return nil, err
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(jobs) {
			return []*domain.Job{}, nil
		}
		jobs = jobs[filter.Offset:]
	}
	if filter.Limit > 0 && len(jobs) > filter.Limit {
		jobs = jobs[:filter.Limit]
	}
	return jobs, nil
}

// PurgeJobs removes completed/failed job records older than the given age.
func (q *Queue) PurgeJobs(ctx context.Context, olderThanSeconds int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	var purged int

	err := q.scanJobs(ctx, func(job *domain.Job) bool {
		if (job.Status == domain.JobStatusCompleted || job.Status == domain.JobStatusFailed) &&
			job.UpdatedAt.Before(cutoff) {
			q.client.Del(ctx, jobKeyPrefix+job.ID)
			purged++
		}
		return true
	})
	return purged, err
}

// Stats returns queue statistics.
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}

	// Waiting jobs sit in the stream minus pending (claimed) deliveries
	info, err := q.client.XInfoStream(ctx, jobStream).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !isStreamNotExistsError(err) {
			return nil, fmt.Errorf("failed to get stream info: %w", err)
		}
	} else {
		stats.WaitingCount = info.Length
	}

	groups, err := q.client.XInfoGroups(ctx, jobStream).Result()
	if err == nil {
		for _, group := range groups {
			if group.Name == jobGroup {
				stats.ActiveCount = group.Pending
				stats.WaitingCount -= group.Pending
				break
			}
		}
	}

	delayed, err := q.client.ZCard(ctx, delayedJobs).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get delayed count: %w", err)
	}
	stats.DelayedCount = delayed

	// Completed/failed counts require a scan of retained records
	err = q.scanJobs(ctx, func(job *domain.Job) bool {
		switch job.Status {
		case domain.JobStatusCompleted:
			stats.CompletedCount++
		case domain.JobStatusFailed:
			stats.FailedCount++
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close cleans up resources.
func (q *Queue) Close() error {
	// Redis client is shared, don't close it here
	return nil
}

// scanJobs walks all retained job records, invoking fn for each until it
// returns false.
func (q *Queue) scanJobs(ctx context.Context, fn func(*domain.Job) bool) error {
	var cursor uint64
	pattern := jobKeyPrefix + "*"

	for {
		keys, newCursor, err := q.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan jobs: %w", err)
		}

		for _, key := range keys {
			// Skip message ID keys
			if strings.HasSuffix(key, ":msg") {
				continue
			}

			data, err := q.client.Get(ctx, key).Result()
			if err != nil {
				continue
			}

			var job domain.Job
			if err := json.Unmarshal([]byte(data), &job); err != nil {
				continue
			}

			if !fn(&job) {
				return nil
			}
		}

		cursor = newCursor
		if cursor == 0 {
			return nil
		}
	}
}

// promoteDelayedJobs moves due delayed jobs to the main stream.
func (q *Queue) promoteDelayedJobs(ctx context.Context) error {
	now := time.Now().Unix()

	jobIDs, err := q.client.ZRangeByScore(ctx, delayedJobs, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		return err
	}
	if len(jobIDs) == 0 {
		return nil
	}

	pipe := q.client.Pipeline()
	for _, jobID := range jobIDs {
		job, err := q.GetJob(ctx, jobID)
		if err != nil || job == nil {
			pipe.ZRem(ctx, delayedJobs, jobID)
			continue
		}

		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: jobStream,
			Values: map[string]interface{}{
				"job_id":      job.ID,
				"type":        string(job.Type),
				"document_id": job.Payload.DocumentID,
			},
		})
		pipe.ZRem(ctx, delayedJobs, jobID)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// claimAbandonedJob tries to claim a delivery abandoned by another worker.
func (q *Queue) claimAbandonedJob(ctx context.Context) (*domain.Job, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: jobStream,
		Group:  jobGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   jobStream,
			Group:    jobGroup,
			Consumer: q.consumerName,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}

		msg := claimed[0]
		jobID, ok := msg.Values["job_id"].(string)
		if !ok {
			q.client.XAck(ctx, jobStream, jobGroup, msg.ID)
			q.client.XDel(ctx, jobStream, msg.ID)
			continue
		}

		job, err := q.GetJob(ctx, jobID)
		if err != nil || job == nil {
			q.client.XAck(ctx, jobStream, jobGroup, msg.ID)
			q.client.XDel(ctx, jobStream, msg.ID)
			continue
		}

		q.claimJob(ctx, job, msg.ID)
		return job, nil
	}

	return nil, nil
}

// Helper functions

func isGroupExistsError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

func isStreamNotExistsError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "no such key") ||
		strings.Contains(err.Error(), "requires the key to exist"))
}
