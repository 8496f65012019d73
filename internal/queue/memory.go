package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/google/uuid"
)

// MemoryQueue implements an in-memory job queue
type MemoryQueue struct {
	jobChan      chan *models.Job
	enqueueWait  time.Duration
	pollInterval time.Duration
}

// NewMemoryQueue creates a new in-memory queue
func NewMemoryQueue(bufferSize int) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 100
	}

	q := &MemoryQueue{
		jobChan:      make(chan *models.Job, bufferSize),
		enqueueWait:  5 * time.Second,
		pollInterval: 5 * time.Second,
	}

	slog.Info("Initialized in-memory job queue", "buffer_size", bufferSize)
	return q
}

// Enqueue adds a job to the queue
func (q *MemoryQueue) Enqueue(ctx context.Context, job *models.Job) error {
	if job.ID == uuid.Nil {
		return fmt.Errorf("job must have an ID")
	}

	select {
	case q.jobChan <- job:
		slog.Debug("Job enqueued", "job_id", job.ID, "type", job.Type)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(q.enqueueWait):
		return fmt.Errorf("queue is full, could not enqueue job %s", job.ID)
	}
}

// Dequeue retrieves the next job from the queue
func (q *MemoryQueue) Dequeue(ctx context.Context) (*models.Job, error) {
	timer := time.NewTimer(q.pollInterval)
	defer timer.Stop()

	select {
	case job, ok := <-q.jobChan:
		if !ok {
			return nil, ErrClosed
		}
		slog.Debug("Job dequeued", "job_id", job.ID, "type", job.Type)
		return job, nil
	case <-timer.C:
		return nil, context.DeadlineExceeded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the queue and releases resources
func (q *MemoryQueue) Close() error {
	close(q.jobChan)
	slog.Info("Memory queue closed")
	return nil
}
