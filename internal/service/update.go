package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alarmdecoder/webconsole/internal/audit"
	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/alarmdecoder/webconsole/internal/queue"
	"github.com/alarmdecoder/webconsole/internal/updater"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// UpdateService owns the updater registry on behalf of the API, the
// scheduler and the worker.
type UpdateService struct {
	db      *gorm.DB
	updater *updater.Updater
	queue   queue.Queue
	logger  *slog.Logger

	checks   singleflight.Group
	submitMu sync.Mutex
	// held for writing while an update runs; a check never overlaps one
	runMu sync.RWMutex

	mu        sync.RWMutex
	status    map[string]updater.Status
	checkedAt time.Time
}

// NewUpdateService creates an UpdateService
func NewUpdateService(db *gorm.DB, u *updater.Updater, q queue.Queue, logger *slog.Logger) *UpdateService {
	return &UpdateService{db: db, updater: u, queue: q, logger: logger}
}

// Components returns the registered component names
func (s *UpdateService) Components() []string {
	return s.updater.Names()
}

// Status returns the cached status of the last check, running a check
// first when none has happened yet.
func (s *UpdateService) Status(ctx context.Context) (map[string]updater.Status, time.Time, error) {
	s.mu.RLock()
	status, at := s.status, s.checkedAt
	s.mu.RUnlock()
	if status != nil {
		return status, at, nil
	}

	status, err := s.Check(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	s.mu.RLock()
	at = s.checkedAt
	s.mu.RUnlock()
	return status, at, nil
}

// Check refreshes every component. Concurrent callers share one refresh,
// which is not cancelled when the caller that started it goes away. While
// an update runs Check returns ErrUpdateInProgress.
func (s *UpdateService) Check(ctx context.Context) (map[string]updater.Status, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.checks.Do("check", func() (interface{}, error) {
		if !s.runMu.TryRLock() {
			return nil, ErrUpdateInProgress
		}
		defer s.runMu.RUnlock()

		status := s.updater.CheckUpdates(shared)
		s.remember(status)
		return status, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]updater.Status), nil
}

func (s *UpdateService) remember(status map[string]updater.Status) {
	now := time.Now().UTC()
	s.mu.Lock()
	s.status = status
	s.checkedAt = now
	s.mu.Unlock()

	if err := db.SetLastUpdateCheck(s.db, now); err != nil {
		s.logger.Warn("Failed to record update check time", "error", err)
	}
}

// SubmitCheck queues a background check job
func (s *UpdateService) SubmitCheck(ctx context.Context) (*models.Job, error) {
	job := &models.Job{Type: models.JobTypeCheck, Status: models.JobStatusPending}
	if err := s.enqueue(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// SubmitUpdate queues an update of component, or of every component that
// needs one when component is empty. Only one update may be queued or
// running at a time.
func (s *UpdateService) SubmitUpdate(ctx context.Context, component string, userID uuid.UUID) (*models.Job, error) {
	if component != "" {
		if _, ok := s.updater.Component(component); !ok {
			return nil, &ValidationError{Field: "component", Message: fmt.Sprintf("unknown component: %s", component)}
		}
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	var active int64
	err := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("type = ? AND status IN ?", models.JobTypeUpdate,
			[]models.JobStatus{models.JobStatusPending, models.JobStatusRunning}).
		Count(&active).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check running updates: %w", err)
	}
	if active > 0 {
		return nil, ErrUpdateInProgress
	}

	job := &models.Job{
		Type:        models.JobTypeUpdate,
		Component:   component,
		Status:      models.JobStatusPending,
		RequestedBy: &userID,
	}
	if err := s.enqueue(ctx, job); err != nil {
		return nil, err
	}

	resource := component
	if resource == "" {
		resource = "all"
	}
	audit.LogAction(s.db, userID, audit.ActionUpdate, audit.Resource("component", resource), map[string]interface{}{
		"job_id": job.ID,
	})
	return job, nil
}

func (s *UpdateService) enqueue(ctx context.Context, job *models.Job) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		now := time.Now()
		if uerr := s.db.Model(job).Updates(map[string]interface{}{
			"status":       models.JobStatusFailed,
			"error":        err.Error(),
			"completed_at": now,
		}).Error; uerr != nil {
			// a pending row blocks later updates
			s.logger.Error("Failed to mark unqueued job as failed", "job_id", job.ID, "error", uerr)
		}
		return fmt.Errorf("failed to queue job: %w", err)
	}
	return nil
}

// ExecuteJob runs a queued check or update. Component log output goes to
// logWriter so it lands in the job log.
func (s *UpdateService) ExecuteJob(ctx context.Context, job *models.Job, logWriter io.Writer) error {
	jobLogger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx = updater.ContextWithLogger(ctx, jobLogger)

	switch job.Type {
	case models.JobTypeCheck:
		status, err := s.Check(ctx)
		if err != nil {
			return err
		}
		job.Result = toResultMap(status)
		for _, name := range sortedKeys(status) {
			fmt.Fprintf(logWriter, "%s: %s\n", name, status[name].Status)
		}
		return nil

	case models.JobTypeUpdate:
		s.runMu.Lock()
		defer s.runMu.Unlock()

		// snapshots for rollback come from the latest refresh
		status := s.updater.CheckUpdates(ctx)
		s.remember(status)

		results, err := s.updater.Update(ctx, job.Component)
		s.remember(s.updater.Status())
		if results != nil {
			job.Result = toResultMap(results)
		}
		if err != nil {
			return err
		}

		var failed []string
		for _, name := range sortedKeys(results) {
			res := results[name]
			fmt.Fprintf(logWriter, "%s: %s (restart required: %t)\n", name, res.Status, res.RestartRequired)
			if !res.Passed() {
				failed = append(failed, name)
			}
		}
		if len(results) == 0 {
			fmt.Fprintln(logWriter, "Nothing to update")
		}
		if len(failed) > 0 {
			return fmt.Errorf("update failed for %v", failed)
		}
		return nil

	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// ListJobs returns the most recent jobs, newest first
func (s *UpdateService) ListJobs(ctx context.Context, limit int) ([]models.Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var jobs []models.Job
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob returns a single job
func (s *UpdateService) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func toResultMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
