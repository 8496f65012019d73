package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/google/uuid"
)

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	first := &models.Job{ID: uuid.New(), Type: models.JobTypeCheck}
	second := &models.Job{ID: uuid.New(), Type: models.JobTypeUpdate}
	for _, j := range []*models.Job{first, second} {
		if err := q.Enqueue(ctx, j); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	for _, want := range []*models.Job{first, second} {
		got, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if got.ID != want.ID {
			t.Errorf("dequeued %s, want %s", got.ID, want.ID)
		}
	}
}

func TestMemoryQueueRejectsJobWithoutID(t *testing.T) {
	q := NewMemoryQueue(1)
	if err := q.Enqueue(context.Background(), &models.Job{}); err == nil {
		t.Error("expected error for job without ID")
	}
}

func TestMemoryQueueFull(t *testing.T) {
	q := NewMemoryQueue(1)
	q.enqueueWait = 10 * time.Millisecond
	ctx := context.Background()

	if err := q.Enqueue(ctx, &models.Job{ID: uuid.New()}); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(ctx, &models.Job{ID: uuid.New()}); err == nil {
		t.Error("expected error when queue is full")
	}
}

func TestMemoryQueueDequeueTimeoutAndClose(t *testing.T) {
	q := NewMemoryQueue(1)
	q.pollInterval = 10 * time.Millisecond

	if _, err := q.Dequeue(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("empty Dequeue error = %v, want DeadlineExceeded", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.pollInterval = time.Minute
	if _, err := q.Dequeue(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled Dequeue error = %v, want Canceled", err)
	}

	q.Close()
	if _, err := q.Dequeue(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("closed Dequeue error = %v, want ErrClosed", err)
	}
}
