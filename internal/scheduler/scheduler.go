package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/go-co-op/gocron/v2"
)

// Checker queues an update check
type Checker interface {
	SubmitCheck(ctx context.Context) (*models.Job, error)
}

// Scheduler runs the periodic background update check
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// New schedules checker every interval. With immediate set the first check
// runs at Start rather than one interval later.
func New(checker Checker, interval time.Duration, immediate bool, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("check interval must be positive, got %s", interval)
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	opts := []gocron.JobOption{
		gocron.WithName("update-check"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if immediate {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func(ctx context.Context) {
			job, err := checker.SubmitCheck(ctx)
			if err != nil {
				logger.Error("Scheduled update check failed", "error", err)
				return
			}
			logger.Debug("Scheduled update check queued", "job_id", job.ID)
		}),
		opts...,
	)
	if err != nil {
		s.Shutdown()
		return nil, fmt.Errorf("failed to schedule update check: %w", err)
	}

	return &Scheduler{scheduler: s, logger: logger}, nil
}

// Start begins running scheduled checks
func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Info("Update check scheduler started")
}

// Shutdown stops the scheduler and waits for a running check to return
func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}

// DueNow reports whether a check should run at startup given the time of
// the last one
func DueNow(last time.Time, known bool, interval time.Duration, now time.Time) bool {
	return !known || now.Sub(last) >= interval
}
