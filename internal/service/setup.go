package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alarmdecoder/webconsole/internal/audit"
	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/alarmdecoder/webconsole/internal/rbac"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Setup stages, in order. The stage names the next step to take.
const (
	SetupStageDevice   = "device"
	SetupStageAccount  = "account"
	SetupStageComplete = "complete"
)

// MinPasswordLength applies to the account created during setup
const MinPasswordLength = 8

// SetupStatus reports first-run setup progress
type SetupStatus struct {
	Stage    string `json:"stage"`
	Complete bool   `json:"complete"`
}

// AccountRequest is the first administrator account
type AccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SetupService walks a fresh install through device configuration and the
// first administrator account. Once any user exists setup is complete.
type SetupService struct {
	db       *gorm.DB
	enforcer *rbac.Enforcer
	settings *SettingsService

	mu sync.Mutex
}

// NewSetupService creates a SetupService
func NewSetupService(db *gorm.DB, enforcer *rbac.Enforcer, settings *SettingsService) *SetupService {
	return &SetupService{db: db, enforcer: enforcer, settings: settings}
}

// Status returns the current stage
func (s *SetupService) Status() (*SetupStatus, error) {
	stage, err := s.stage()
	if err != nil {
		return nil, err
	}
	return &SetupStatus{Stage: stage, Complete: stage == SetupStageComplete}, nil
}

func (s *SetupService) stage() (string, error) {
	var users int64
	if err := s.db.Model(&models.User{}).Count(&users).Error; err != nil {
		return "", fmt.Errorf("failed to count users: %w", err)
	}
	if users > 0 {
		return SetupStageComplete, nil
	}

	stage, err := db.GetConfig(s.db, models.ServerConfigKeySetupStage)
	if errors.Is(err, db.ErrConfigNotSet) {
		return SetupStageDevice, nil
	}
	if err != nil {
		return "", err
	}
	if stage == SetupStageComplete {
		// every account was removed afterwards; start over at the account
		return SetupStageAccount, nil
	}
	return stage, nil
}

// ConfigureDevice stores the device settings and moves on to the account
// stage. It may be repeated until setup completes.
func (s *SetupService) ConfigureDevice(values map[string]string) (*SetupStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stage, err := s.stage()
	if err != nil {
		return nil, err
	}
	if stage == SetupStageComplete {
		return nil, &ConflictError{Message: "setup is already complete"}
	}
	if strings.TrimSpace(values[SettingDeviceType]) == "" {
		return nil, &ValidationError{Field: SettingDeviceType, Message: SettingDeviceType + " is required"}
	}
	if _, err := s.settings.Update(uuid.Nil, values); err != nil {
		return nil, err
	}
	if err := db.SetConfig(s.db, models.ServerConfigKeySetupStage, SetupStageAccount); err != nil {
		return nil, err
	}
	return &SetupStatus{Stage: SetupStageAccount}, nil
}

// CreateAccount creates the first administrator and completes setup
func (s *SetupService) CreateAccount(req AccountRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stage, err := s.stage()
	if err != nil {
		return nil, err
	}
	switch stage {
	case SetupStageComplete:
		return nil, &ConflictError{Message: "setup is already complete"}
	case SetupStageDevice:
		return nil, &ConflictError{Message: "the device must be configured first"}
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" {
		return nil, &ValidationError{Field: "username", Message: "username is required"}
	}
	if len(req.Password) < MinPasswordLength {
		return nil, &ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	if req.Email == "" {
		req.Email = req.Username + "@alarmdecoder.local"
	}

	user, err := db.CreateUser(s.db, req.Username, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.MakeAdmin(user.ID); err != nil {
		return nil, fmt.Errorf("failed to grant admin: %w", err)
	}
	if err := db.SetConfig(s.db, models.ServerConfigKeySetupStage, SetupStageComplete); err != nil {
		return nil, err
	}

	audit.LogAction(s.db, user.ID, audit.ActionCompleteSetup, audit.Resource("user", user.ID.String()), map[string]interface{}{
		"username": user.Username,
	})
	return user, nil
}
