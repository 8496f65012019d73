package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alarmdecoder/webconsole/internal/config"
	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/alarmdecoder/webconsole/internal/queue"
	"github.com/alarmdecoder/webconsole/internal/updater"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "service.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(gdb, "sqlite"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

// fakeComponent is a scripted updater.Component
type fakeComponent struct {
	name      string
	needs     bool
	result    updater.Result
	err       error
	refreshes atomic.Int32
	updates   atomic.Int32
	block     chan struct{}
	cancelled atomic.Bool

	// when set, Update signals updating and waits for release
	updating chan struct{}
	release  chan struct{}
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Refresh(ctx context.Context) {
	if f.block != nil {
		<-f.block
	}
	if ctx.Err() != nil {
		f.cancelled.Store(true)
	}
	f.refreshes.Add(1)
}

func (f *fakeComponent) NeedsUpdate() bool { return f.needs }

func (f *fakeComponent) Status() updater.Status {
	return updater.Status{Name: f.name, Enabled: true, NeedsUpdate: f.needs, Status: "Up to date!"}
}

func (f *fakeComponent) Update(ctx context.Context) (updater.Result, error) {
	f.updates.Add(1)
	if f.updating != nil {
		close(f.updating)
		<-f.release
	}
	return f.result, f.err
}

func newUpdateService(t *testing.T, c *fakeComponent) (*UpdateService, *gorm.DB) {
	t.Helper()
	gdb := setupDB(t)
	u := updater.New(discardLogger(), c)
	return NewUpdateService(gdb, u, queue.NewMemoryQueue(10), discardLogger()), gdb
}

func TestStatusRunsFirstCheckAndCaches(t *testing.T) {
	c := &fakeComponent{name: "webapp"}
	s, gdb := newUpdateService(t, c)
	ctx := context.Background()

	status, at, err := s.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(status) != 1 || status["webapp"].Name != "webapp" {
		t.Errorf("status = %v", status)
	}
	if at.IsZero() {
		t.Error("check time not set")
	}

	if _, _, err := s.Status(ctx); err != nil {
		t.Fatal(err)
	}
	if n := c.refreshes.Load(); n != 1 {
		t.Errorf("refreshes = %d, want 1 (second Status should hit the cache)", n)
	}

	if _, ok, err := db.GetLastUpdateCheck(gdb); err != nil || !ok {
		t.Errorf("last update check not recorded: ok=%v err=%v", ok, err)
	}
}

func TestConcurrentChecksShareOneRefresh(t *testing.T) {
	c := &fakeComponent{name: "webapp", block: make(chan struct{})}
	s, _ := newUpdateService(t, c)

	var wg sync.WaitGroup
	started := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			s.Check(context.Background())
		}()
	}
	for i := 0; i < 5; i++ {
		<-started
	}
	close(c.block)
	wg.Wait()

	if n := c.refreshes.Load(); n < 1 || n > 5 {
		t.Fatalf("refreshes = %d", n)
	}
}

func TestCheckIgnoresCallerCancellation(t *testing.T) {
	c := &fakeComponent{name: "webapp"}
	s, _ := newUpdateService(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Check(ctx); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if c.cancelled.Load() {
		t.Error("shared refresh ran under the caller's cancelled context")
	}
}

func TestCheckRejectedWhileUpdating(t *testing.T) {
	c := &fakeComponent{
		name:     "webapp",
		needs:    true,
		result:   updater.Result{Status: updater.StatusPass},
		updating: make(chan struct{}),
		release:  make(chan struct{}),
	}
	s, _ := newUpdateService(t, c)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- s.ExecuteJob(ctx, &models.Job{Type: models.JobTypeUpdate, Component: "webapp"}, io.Discard)
	}()
	<-c.updating

	before := c.refreshes.Load()
	if _, err := s.Check(ctx); !errors.Is(err, ErrUpdateInProgress) {
		t.Errorf("Check during update error = %v, want ErrUpdateInProgress", err)
	}
	if n := c.refreshes.Load(); n != before {
		t.Errorf("refreshes during update = %d, want %d", n, before)
	}

	close(c.release)
	if err := <-done; err != nil {
		t.Fatalf("ExecuteJob: %v", err)
	}
	if _, err := s.Check(ctx); err != nil {
		t.Errorf("Check after update: %v", err)
	}
}

// brokenQueue refuses every job
type brokenQueue struct{}

func (brokenQueue) Enqueue(context.Context, *models.Job) error {
	return errors.New("queue unavailable")
}

func (brokenQueue) Dequeue(ctx context.Context) (*models.Job, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (brokenQueue) Close() error { return nil }

func TestSubmitUpdateEnqueueFailure(t *testing.T) {
	gdb := setupDB(t)
	u := updater.New(discardLogger(), &fakeComponent{name: "webapp", needs: true})
	s := NewUpdateService(gdb, u, brokenQueue{}, discardLogger())
	ctx := context.Background()

	if _, err := s.SubmitUpdate(ctx, "webapp", uuid.New()); err == nil {
		t.Fatal("expected enqueue error")
	}

	var jobs []models.Job
	if err := gdb.Find(&jobs).Error; err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].Status != models.JobStatusFailed || jobs[0].CompletedAt == nil {
		t.Fatalf("jobs = %+v, want one failed job", jobs)
	}

	// the failed job must not count as an update in progress
	s.queue = queue.NewMemoryQueue(1)
	if _, err := s.SubmitUpdate(ctx, "webapp", uuid.New()); err != nil {
		t.Errorf("submit after enqueue failure: %v", err)
	}
}

func TestSubmitUpdate(t *testing.T) {
	c := &fakeComponent{name: "webapp", needs: true}
	s, gdb := newUpdateService(t, c)
	ctx := context.Background()
	user := uuid.New()

	var verr *ValidationError
	if _, err := s.SubmitUpdate(ctx, "firmware", user); !errors.As(err, &verr) {
		t.Errorf("unknown component error = %v, want ValidationError", err)
	}

	job, err := s.SubmitUpdate(ctx, "webapp", user)
	if err != nil {
		t.Fatalf("SubmitUpdate: %v", err)
	}
	if job.Type != models.JobTypeUpdate || job.Component != "webapp" || job.Status != models.JobStatusPending {
		t.Errorf("unexpected job: %+v", job)
	}

	if _, err := s.SubmitUpdate(ctx, "", user); !errors.Is(err, ErrUpdateInProgress) {
		t.Errorf("second submit error = %v, want ErrUpdateInProgress", err)
	}

	var entries int64
	gdb.Model(&models.AuditLog{}).Where("action = ?", "update_component").Count(&entries)
	if entries != 1 {
		t.Errorf("audit entries = %d, want 1", entries)
	}

	// once the first job finishes another update may be queued
	gdb.Model(&models.Job{}).Where("id = ?", job.ID).Update("status", models.JobStatusCompleted)
	if _, err := s.SubmitUpdate(ctx, "", user); err != nil {
		t.Errorf("submit after completion: %v", err)
	}
}

func TestExecuteUpdateJob(t *testing.T) {
	c := &fakeComponent{name: "webapp", needs: true, result: updater.Result{Status: updater.StatusPass, RestartRequired: true}}
	s, _ := newUpdateService(t, c)

	job := &models.Job{Type: models.JobTypeUpdate}
	var logs bytes.Buffer
	if err := s.ExecuteJob(context.Background(), job, &logs); err != nil {
		t.Fatalf("ExecuteJob: %v", err)
	}

	webapp, ok := job.Result["webapp"].(map[string]interface{})
	if !ok {
		t.Fatalf("result = %v", job.Result)
	}
	if webapp["status"] != "PASS" || webapp["restart_required"] != true {
		t.Errorf("webapp result = %v", webapp)
	}
	if !strings.Contains(logs.String(), "webapp: PASS") {
		t.Errorf("logs = %q", logs.String())
	}
	if c.refreshes.Load() == 0 {
		t.Error("update should refresh before running")
	}
}

func TestExecuteUpdateJobFailure(t *testing.T) {
	c := &fakeComponent{name: "webapp", needs: true, result: updater.Result{Status: updater.StatusFail}}
	s, _ := newUpdateService(t, c)

	job := &models.Job{Type: models.JobTypeUpdate, Component: "webapp"}
	err := s.ExecuteJob(context.Background(), job, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "webapp") {
		t.Errorf("error = %v, want failure naming webapp", err)
	}
	if job.Result["webapp"] == nil {
		t.Error("failed result should still be recorded")
	}
}

func TestExecuteCheckJob(t *testing.T) {
	c := &fakeComponent{name: "webapp"}
	s, _ := newUpdateService(t, c)

	job := &models.Job{Type: models.JobTypeCheck}
	var logs bytes.Buffer
	if err := s.ExecuteJob(context.Background(), job, &logs); err != nil {
		t.Fatal(err)
	}
	if logs.String() != "webapp: Up to date!\n" {
		t.Errorf("logs = %q", logs.String())
	}
	if job.Result["webapp"] == nil {
		t.Errorf("result = %v", job.Result)
	}
}

func TestGetJobNotFound(t *testing.T) {
	s, _ := newUpdateService(t, &fakeComponent{name: "webapp"})
	if _, err := s.GetJob(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestKeypadButtons(t *testing.T) {
	gdb := setupDB(t)
	s := NewKeypadService(gdb)
	alice, bob := uuid.New(), uuid.New()

	for _, tt := range []struct {
		name  string
		req   ButtonRequest
		field string
	}{
		{"missing label", ButtonRequest{Code: "1234"}, "label"},
		{"missing code", ButtonRequest{Label: "Arm"}, "code"},
		{"long label", ButtonRequest{Label: strings.Repeat("x", 33), Code: "1"}, "label"},
		{"long code", ButtonRequest{Label: "Arm", Code: strings.Repeat("1", 33)}, "code"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var verr *ValidationError
			if _, err := s.Create(alice, tt.req); !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}

	arm, err := s.Create(alice, ButtonRequest{Label: " Arm Away ", Code: "12342"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if arm.Label != "Arm Away" {
		t.Errorf("label = %q, want trimmed", arm.Label)
	}

	var cerr *ConflictError
	if _, err := s.Create(alice, ButtonRequest{Label: "Arm Away", Code: "1"}); !errors.As(err, &cerr) {
		t.Errorf("duplicate label error = %v, want ConflictError", err)
	}
	if _, err := s.Create(bob, ButtonRequest{Label: "Arm Away", Code: "1"}); err != nil {
		t.Errorf("other user may reuse the label: %v", err)
	}

	if _, err := s.Get(bob, arm.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("bob reading alice's button: %v, want ErrNotFound", err)
	}

	updated, err := s.Update(alice, arm.ID, ButtonRequest{Label: "Arm Stay", Code: "12343"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Label != "Arm Stay" || updated.Code != "12343" {
		t.Errorf("updated = %+v", updated)
	}

	list, err := s.List(alice)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}

	if err := s.Delete(alice, arm.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(alice, arm.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}
