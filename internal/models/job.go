package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobType represents the type of job
type JobType string

const (
	JobTypeCheck  JobType = "check"
	JobTypeUpdate JobType = "update"
)

// JobStatus represents the state of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job represents a background updater task
type Job struct {
	ID          uuid.UUID              `gorm:"type:text;primary_key" json:"id"`
	Type        JobType                `gorm:"not null" json:"type"`
	Component   string                 `json:"component,omitempty"` // empty means every component
	Status      JobStatus              `gorm:"not null;default:'pending'" json:"status"`
	Logs        string                 `gorm:"type:text" json:"logs"`
	Error       string                 `gorm:"type:text" json:"error,omitempty"`
	Result      map[string]interface{} `gorm:"serializer:json" json:"result,omitempty"`
	RequestedBy *uuid.UUID             `gorm:"type:text;index" json:"requested_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// BeforeCreate hook to generate UUID
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// Finished reports whether the job reached a terminal status
func (j *Job) Finished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
