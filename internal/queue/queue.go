package queue

import (
	"context"
	"errors"

	"github.com/alarmdecoder/webconsole/internal/models"
)

// ErrClosed is returned by Dequeue once the queue has been closed
var ErrClosed = errors.New("queue closed")

// Queue transports updater jobs from the API to the worker. The database
// row stays the source of truth for job state.
type Queue interface {
	// Enqueue adds a job to the queue
	Enqueue(ctx context.Context, job *models.Job) error

	// Dequeue retrieves the next job from the queue. It returns
	// context.DeadlineExceeded when no job arrived within the poll window.
	Dequeue(ctx context.Context) (*models.Job, error)

	// Close closes the queue and releases resources
	Close() error
}
