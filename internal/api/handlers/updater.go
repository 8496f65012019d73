package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alarmdecoder/webconsole/internal/api/middleware"
	"github.com/alarmdecoder/webconsole/internal/audit"
	"github.com/alarmdecoder/webconsole/internal/logstream"
	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/alarmdecoder/webconsole/internal/service"
	"github.com/alarmdecoder/webconsole/internal/updater"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UpdaterHandler exposes the self-update subsystem
type UpdaterHandler struct {
	db     *gorm.DB
	svc    *service.UpdateService
	broker *logstream.LogBroker
}

// NewUpdaterHandler creates an UpdaterHandler
func NewUpdaterHandler(db *gorm.DB, svc *service.UpdateService, broker *logstream.LogBroker) *UpdaterHandler {
	return &UpdaterHandler{db: db, svc: svc, broker: broker}
}

// UpdateStatusResponse is the cached status of every component
type UpdateStatusResponse struct {
	CheckedAt  time.Time                 `json:"checked_at"`
	Components map[string]updater.Status `json:"components"`
}

// UpdateRequest selects the component to update; empty means all
type UpdateRequest struct {
	Component string `json:"component"`
}

func localized(c *gin.Context, status map[string]updater.Status) map[string]updater.Status {
	tag := middleware.LocaleFromContext(c)
	out := make(map[string]updater.Status, len(status))
	for name, st := range status {
		out[name] = st.Localize(tag)
	}
	return out
}

// GetStatus godoc
// @Summary Get update status
// @Description Returns the status of every component as of the last check
// @Tags updater
// @Security BearerAuth
// @Produce json
// @Success 200 {object} UpdateStatusResponse
// @Failure 500 {object} ErrorResponse
// @Router /updater/status [get]
func (h *UpdaterHandler) GetStatus(c *gin.Context) {
	status, at, err := h.svc.Status(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, UpdateStatusResponse{CheckedAt: at, Components: localized(c, status)})
}

// CheckUpdates godoc
// @Summary Check for updates
// @Description Refreshes every component and returns the new status
// @Tags updater
// @Security BearerAuth
// @Produce json
// @Success 200 {object} UpdateStatusResponse
// @Failure 500 {object} ErrorResponse
// @Router /updater/check [post]
func (h *UpdaterHandler) CheckUpdates(c *gin.Context) {
	status, err := h.svc.Check(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	audit.LogAction(h.db, getUserID(c), audit.ActionCheckUpdates, audit.Resource("component", "all"), nil)

	_, at, _ := h.svc.Status(c.Request.Context())
	c.JSON(http.StatusOK, UpdateStatusResponse{CheckedAt: at, Components: localized(c, status)})
}

// Update godoc
// @Summary Update a component
// @Description Queues an update of one component, or of every component that needs one
// @Tags updater
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body UpdateRequest false "Component to update"
// @Success 202 {object} models.Job
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /updater/update [post]
func (h *UpdaterHandler) Update(c *gin.Context) {
	var req UpdateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	job, err := h.svc.SubmitUpdate(c.Request.Context(), req.Component, getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// ListJobs godoc
// @Summary List updater jobs
// @Tags updater
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Maximum number of jobs"
// @Success 200 {array} models.Job
// @Router /updater/jobs [get]
func (h *UpdaterHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	jobs, err := h.svc.ListJobs(c.Request.Context(), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// GetJob godoc
// @Summary Get a job
// @Tags updater
// @Security BearerAuth
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.Job
// @Failure 404 {object} ErrorResponse
// @Router /updater/jobs/{id} [get]
func (h *UpdaterHandler) GetJob(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	job, err := h.svc.GetJob(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// StreamJobLogs godoc
// @Summary Stream job logs in real-time via Server-Sent Events
// @Tags updater
// @Security BearerAuth
// @Produce text/event-stream
// @Param id path string true "Job ID"
// @Param token query string false "Auth token (alternative to Bearer header for EventSource compatibility)"
// @Success 200 {string} string "event stream"
// @Failure 404 {object} ErrorResponse
// @Router /updater/jobs/{id}/logs/stream [get]
func (h *UpdaterHandler) StreamJobLogs(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	job, err := h.svc.GetJob(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	if job.Finished() {
		writeDone(c, job)
		return
	}

	// the backlog and the channel together hold every line the broker has
	// seen; the row read earlier may be up to one flush behind
	backlog, logChan := h.broker.SubscribeWithBacklog(id)
	defer h.broker.Unsubscribe(id, logChan)

	job, err = h.svc.GetJob(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if job.Finished() {
		writeDone(c, job)
		return
	}
	if len(backlog) > 0 {
		writeEvent(c, strings.Join(backlog, "\n"))
	} else {
		// nothing published in this process yet; jobs run elsewhere only have stored logs
		writeEvent(c, job.Logs)
	}
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case line, ok := <-logChan:
			if !ok {
				status := models.JobStatusCompleted
				if final, err := h.svc.GetJob(c.Request.Context(), id); err == nil {
					status = final.Status
				}
				fmt.Fprintf(c.Writer, "event: done\ndata: %s\n\n", status)
				c.Writer.Flush()
				return
			}
			writeEvent(c, line)
			c.Writer.Flush()
		}
	}
}

// writeDone replays a finished job's stored logs and ends the stream
func writeDone(c *gin.Context, job *models.Job) {
	writeEvent(c, job.Logs)
	fmt.Fprintf(c.Writer, "event: done\ndata: %s\n\n", job.Status)
	c.Writer.Flush()
}

// writeEvent sends text as one SSE message, one data field per line
func writeEvent(c *gin.Context, text string) {
	if text == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		fmt.Fprintf(c.Writer, "data: %s\n", line)
	}
	fmt.Fprint(c.Writer, "\n")
}
