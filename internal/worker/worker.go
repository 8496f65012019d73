package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alarmdecoder/webconsole/internal/logstream"
	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/alarmdecoder/webconsole/internal/queue"
	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
	"gorm.io/gorm"
)

// JobExecutor runs the body of a job, writing its progress to logWriter.
// It may record a result on job before returning.
type JobExecutor interface {
	ExecuteJob(ctx context.Context, job *models.Job, logWriter io.Writer) error
}

// Worker processes jobs from the queue
type Worker struct {
	db            *gorm.DB
	queue         queue.Queue
	executor      JobExecutor
	logger        *slog.Logger
	broker        *logstream.LogBroker
	valkeyClient  valkey.Client // distributed log streaming, nil in local mode
	maxWorkers    int
	semaphore     chan struct{}
	flushInterval time.Duration
	wg            sync.WaitGroup
}

// New creates a new worker instance. maxWorkers bounds concurrent jobs.
func New(db *gorm.DB, q queue.Queue, exec JobExecutor, broker *logstream.LogBroker, logger *slog.Logger, valkeyClient valkey.Client, maxWorkers int) *Worker {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if broker == nil {
		broker = logstream.NewBroker()
	}
	return &Worker{
		db:            db,
		queue:         q,
		executor:      exec,
		logger:        logger,
		broker:        broker,
		valkeyClient:  valkeyClient,
		maxWorkers:    maxWorkers,
		semaphore:     make(chan struct{}, maxWorkers),
		flushInterval: 2 * time.Second,
	}
}

// GetBroker returns the log broker for external access (SSE endpoints)
func (w *Worker) GetBroker() *logstream.LogBroker {
	return w.broker
}

// RecoverInterrupted marks jobs left pending or running by a previous
// process as failed. A restart after a successful update lands here too,
// so the job log tells the operator what happened.
func (w *Worker) RecoverInterrupted(ctx context.Context) error {
	now := time.Now()
	result := w.db.WithContext(ctx).Model(&models.Job{}).
		Where("status IN ?", []models.JobStatus{models.JobStatusPending, models.JobStatusRunning}).
		Updates(map[string]interface{}{
			"status":       models.JobStatusFailed,
			"error":        "interrupted by server restart",
			"completed_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to recover interrupted jobs: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		w.logger.Warn("Marked interrupted jobs as failed", "count", result.RowsAffected)
	}
	return nil
}

// Start begins processing jobs from the queue
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Worker started", "max_concurrent_jobs", w.maxWorkers)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker shutting down, waiting for jobs to complete")
			w.wg.Wait()
			w.logger.Info("All jobs completed, worker stopped")
			return ctx.Err()
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				// poll window elapsed with no job
				continue
			case errors.Is(err, queue.ErrClosed):
				w.wg.Wait()
				return err
			case ctx.Err() != nil:
				continue
			}
			w.logger.Error("Failed to dequeue job", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		select {
		case w.semaphore <- struct{}{}:
			w.wg.Add(1)
			go func(j *models.Job) {
				defer w.wg.Done()
				defer func() { <-w.semaphore }()

				w.processJob(ctx, j)
			}(job)
		case <-ctx.Done():
			w.logger.Info("Context cancelled while waiting for worker slot")
			w.wg.Wait()
			return ctx.Err()
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job *models.Job) {
	var logBuf bytes.Buffer
	var logMutex sync.Mutex

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Panic recovered in processJob", "job_id", job.ID, "panic", r)
			completedAt := time.Now()
			job.CompletedAt = &completedAt
			job.Status = models.JobStatusFailed
			job.Error = fmt.Sprintf("Job panicked: %v", r)
			logMutex.Lock()
			job.Logs = logBuf.String()
			logMutex.Unlock()
			w.db.Save(job)
			w.broker.Close(job.ID)
		}
	}()

	w.logger.Info("Processing job", "job_id", job.ID, "type", job.Type, "component", job.Component)

	job.Status = models.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	w.db.Save(job)

	stopFlushing := make(chan struct{})
	flushed := make(chan struct{})
	go func() {
		defer close(flushed)
		w.flushLogsToDatabase(job.ID, &logBuf, &logMutex, stopFlushing)
	}()
	stopFlusher := sync.OnceFunc(func() {
		close(stopFlushing)
		<-flushed
	})
	defer stopFlusher()

	safeWriter := &threadSafeWriter{writer: &logBuf, mu: &logMutex}
	brokerWriter := logstream.NewStreamWriter(job.ID, w.broker, safeWriter)

	var logWriter io.Writer = brokerWriter
	var valkeyWriter *logstream.ValkeyLogWriter
	if w.valkeyClient != nil {
		valkeyWriter = logstream.NewValkeyLogWriter(ctx, w.valkeyClient, job.ID.String())
		logWriter = io.MultiWriter(brokerWriter, valkeyWriter)
	}

	err := w.executor.ExecuteJob(ctx, job, logWriter)
	brokerWriter.Flush()

	stopFlusher()

	logMutex.Lock()
	finalLogs := logBuf.String()
	logMutex.Unlock()

	completedAt := time.Now()
	job.CompletedAt = &completedAt
	job.Logs = finalLogs

	var summary string
	if err != nil {
		w.logger.Error("Job failed", "job_id", job.ID, "error", err)
		job.Status = models.JobStatusFailed
		job.Error = err.Error()
		summary = fmt.Sprintf("[ERROR] Job failed: %v", err)
	} else {
		w.logger.Info("Job completed", "job_id", job.ID)
		job.Status = models.JobStatusCompleted
		summary = "[COMPLETED] Job finished successfully"
	}
	w.broker.Publish(job.ID, summary)
	if valkeyWriter != nil {
		valkeyWriter.Publish(summary)
	}

	if err := w.db.Save(job).Error; err != nil {
		w.logger.Error("Failed to save job", "job_id", job.ID, "error", err)
	}
	w.broker.Close(job.ID)
}

// flushLogsToDatabase periodically saves accumulated logs to the database
func (w *Worker) flushLogsToDatabase(jobID uuid.UUID, logBuf *bytes.Buffer, logMutex *sync.Mutex, stop chan struct{}) {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	flush := func() {
		logMutex.Lock()
		currentLogs := logBuf.String()
		logMutex.Unlock()

		if err := w.db.Model(&models.Job{}).Where("id = ?", jobID).Update("logs", currentLogs).Error; err != nil {
			w.logger.Error("Failed to flush logs to database", "job_id", jobID, "error", err)
		}
	}

	for {
		select {
		case <-ticker.C:
			flush()
		case <-stop:
			flush()
			return
		}
	}
}

// threadSafeWriter wraps an io.Writer with a mutex for concurrent access
type threadSafeWriter struct {
	writer io.Writer
	mu     *sync.Mutex
}

func (w *threadSafeWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writer.Write(p)
}
