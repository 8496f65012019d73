package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alarmdecoder/webconsole/internal/api/middleware"
	"github.com/alarmdecoder/webconsole/internal/logstream"
	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/alarmdecoder/webconsole/internal/queue"
	"github.com/alarmdecoder/webconsole/internal/service"
	"github.com/alarmdecoder/webconsole/internal/updater"
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

func setupUpdaterRouter(t *testing.T) (*gin.Engine, *gorm.DB, *logstream.LogBroker) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "installer")

	u := updater.New(discardLogger(), &stubComponent{name: "webapp", needs: true})
	svc := service.NewUpdateService(gdb, u, queue.NewMemoryQueue(10), discardLogger())
	broker := logstream.NewBroker()
	h := NewUpdaterHandler(gdb, svc, broker)

	r := gin.New()
	r.Use(middleware.Locale(language.English), withUser(user))
	r.GET("/updater/status", h.GetStatus)
	r.POST("/updater/check", h.CheckUpdates)
	r.POST("/updater/update", h.Update)
	r.GET("/updater/jobs", h.ListJobs)
	r.GET("/updater/jobs/:id", h.GetJob)
	r.GET("/updater/jobs/:id/logs/stream", h.StreamJobLogs)
	return r, gdb, broker
}

func TestGetStatus_Localized(t *testing.T) {
	r, _, _ := setupUpdaterRouter(t)

	tests := []struct {
		acceptLanguage string
		want           string
	}{
		{"", "Up to date!"},
		{"de-DE,de;q=0.9", "Auf dem neuesten Stand!"},
		{"fr", "Up to date!"},
	}
	for _, tt := range tests {
		w := serve(r, http.MethodGet, "/updater/status", nil, "Accept-Language", tt.acceptLanguage)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		var resp UpdateStatusResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if got := resp.Components["webapp"].Status; got != tt.want {
			t.Errorf("Accept-Language %q: status = %q, want %q", tt.acceptLanguage, got, tt.want)
		}
		if resp.CheckedAt.IsZero() {
			t.Error("checked_at not set")
		}
	}
}

func TestCheckUpdates(t *testing.T) {
	r, gdb, _ := setupUpdaterRouter(t)

	w := serve(r, http.MethodPost, "/updater/check", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var count int64
	gdb.Model(&models.AuditLog{}).Where("action = ?", "check_updates").Count(&count)
	if count != 1 {
		t.Errorf("expected 1 audit entry, got %d", count)
	}
}

func TestUpdate_QueuesJobAndRejectsSecond(t *testing.T) {
	r, _, _ := setupUpdaterRouter(t)

	w := serve(r, http.MethodPost, "/updater/update", strings.NewReader(`{"component":"webapp"}`))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d: %s", http.StatusAccepted, w.Code, w.Body.String())
	}
	var job models.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatal(err)
	}
	if job.Type != models.JobTypeUpdate || job.Component != "webapp" || job.Status != models.JobStatusPending {
		t.Errorf("unexpected job %+v", job)
	}

	w = serve(r, http.MethodPost, "/updater/update", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("second update: expected status %d, got %d", http.StatusConflict, w.Code)
	}

	w = serve(r, http.MethodGet, "/updater/jobs/"+job.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Errorf("get job: expected status %d, got %d", http.StatusOK, w.Code)
	}

	w = serve(r, http.MethodGet, "/updater/jobs", nil)
	var jobs []models.Job
	if err := json.Unmarshal(w.Body.Bytes(), &jobs); err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Errorf("expected 1 job, got %d", len(jobs))
	}
}

func TestUpdate_Errors(t *testing.T) {
	r, _, _ := setupUpdaterRouter(t)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown component", "/updater/update", `{"component":"firmware"}`, http.StatusBadRequest},
		{"malformed body", "/updater/update", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodPost, tt.path, strings.NewReader(tt.body))
			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, w.Code)
			}
		})
	}

	if w := serve(r, http.MethodGet, "/updater/jobs/not-a-uuid", nil); w.Code != http.StatusBadRequest {
		t.Errorf("invalid job id: expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if w := serve(r, http.MethodGet, "/updater/jobs/6f1c3a52-8d0e-4c3b-9d7a-2f9e0c1b4a11", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing job: expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestStreamJobLogs_FinishedJob(t *testing.T) {
	r, gdb, _ := setupUpdaterRouter(t)

	job := models.Job{
		Type:   models.JobTypeCheck,
		Status: models.JobStatusCompleted,
		Logs:   "webapp: Up to date!\n",
	}
	if err := gdb.Create(&job).Error; err != nil {
		t.Fatal(err)
	}

	w := serve(r, http.MethodGet, "/updater/jobs/"+job.ID.String()+"/logs/stream", nil)
	body := w.Body.String()
	if !strings.Contains(body, "data: webapp: Up to date!\n\n") {
		t.Errorf("historic logs missing from stream: %q", body)
	}
	if !strings.Contains(body, "event: done\ndata: completed") {
		t.Errorf("done event missing from stream: %q", body)
	}
}

func TestStreamJobLogs_LiveJob(t *testing.T) {
	r, gdb, broker := setupUpdaterRouter(t)

	job := models.Job{Type: models.JobTypeUpdate, Status: models.JobStatusRunning}
	if err := gdb.Create(&job).Error; err != nil {
		t.Fatal(err)
	}

	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for !broker.HasSubscribers(job.ID) && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		broker.Publish(job.ID, "SourceUpdater: starting..")
		gdb.Model(&job).Update("status", models.JobStatusCompleted)
		broker.Close(job.ID)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan string, 1)
	go func() {
		w := serve(r, http.MethodGet, "/updater/jobs/"+job.ID.String()+"/logs/stream", nil)
		done <- w.Body.String()
	}()

	select {
	case body := <-done:
		if !strings.Contains(body, "data: SourceUpdater: starting..\n\n") {
			t.Errorf("live line missing from stream: %q", body)
		}
		if !strings.Contains(body, "event: done\ndata: completed") {
			t.Errorf("done event missing from stream: %q", body)
		}
	case <-ctx.Done():
		t.Fatal("stream did not finish")
	}
}

func TestStreamJobLogs_ReplaysLinesNotYetStored(t *testing.T) {
	r, gdb, broker := setupUpdaterRouter(t)

	job := models.Job{Type: models.JobTypeUpdate, Status: models.JobStatusRunning}
	if err := gdb.Create(&job).Error; err != nil {
		t.Fatal(err)
	}
	// published by the worker but not yet flushed to the row
	broker.Publish(job.ID, "SourceUpdater: fetching..")
	broker.Publish(job.ID, "SourceUpdater: merging..")

	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for !broker.HasSubscribers(job.ID) && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		gdb.Model(&job).Update("status", models.JobStatusCompleted)
		broker.Close(job.ID)
	}()

	done := make(chan string, 1)
	go func() {
		w := serve(r, http.MethodGet, "/updater/jobs/"+job.ID.String()+"/logs/stream", nil)
		done <- w.Body.String()
	}()

	select {
	case body := <-done:
		if !strings.Contains(body, "data: SourceUpdater: fetching..\ndata: SourceUpdater: merging..\n\n") {
			t.Errorf("unstored lines missing from stream: %q", body)
		}
		if !strings.Contains(body, "event: done\ndata: completed") {
			t.Errorf("done event missing from stream: %q", body)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("stream did not finish")
	}
}
