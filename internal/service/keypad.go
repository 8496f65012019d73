package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alarmdecoder/webconsole/internal/audit"
	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ButtonRequest holds the editable fields of a keypad button
type ButtonRequest struct {
	Label string `json:"label"`
	Code  string `json:"code"`
}

// KeypadService manages a user's custom keypad buttons
type KeypadService struct {
	db *gorm.DB
}

// NewKeypadService creates a KeypadService
func NewKeypadService(db *gorm.DB) *KeypadService {
	return &KeypadService{db: db}
}

func (r *ButtonRequest) normalize() error {
	r.Label = strings.TrimSpace(r.Label)
	r.Code = strings.TrimSpace(r.Code)

	for _, f := range []struct{ name, value string }{{"label", r.Label}, {"code", r.Code}} {
		if f.value == "" {
			return &ValidationError{Field: f.name, Message: f.name + " is required"}
		}
		if utf8.RuneCountInString(f.value) > models.KeypadButtonFieldMax {
			return &ValidationError{Field: f.name, Message: fmt.Sprintf("%s must be at most %d characters", f.name, models.KeypadButtonFieldMax)}
		}
	}
	return nil
}

// List returns the user's buttons in creation order
func (s *KeypadService) List(userID uuid.UUID) ([]models.KeypadButton, error) {
	var buttons []models.KeypadButton
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&buttons).Error; err != nil {
		return nil, err
	}
	return buttons, nil
}

// Get returns one of the user's buttons
func (s *KeypadService) Get(userID, id uuid.UUID) (*models.KeypadButton, error) {
	var button models.KeypadButton
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&button).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &button, nil
}

// Create adds a button. Labels are unique per user.
func (s *KeypadService) Create(userID uuid.UUID, req ButtonRequest) (*models.KeypadButton, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	if err := s.checkLabelFree(userID, req.Label, uuid.Nil); err != nil {
		return nil, err
	}

	button := models.KeypadButton{UserID: userID, Label: req.Label, Code: req.Code}
	if err := s.db.Create(&button).Error; err != nil {
		return nil, fmt.Errorf("failed to create button: %w", err)
	}

	audit.LogAction(s.db, userID, audit.ActionCreateButton, audit.Resource("button", button.ID.String()), map[string]interface{}{
		"label": button.Label,
	})
	return &button, nil
}

// Update replaces the label and code of a button
func (s *KeypadService) Update(userID, id uuid.UUID, req ButtonRequest) (*models.KeypadButton, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	button, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkLabelFree(userID, req.Label, id); err != nil {
		return nil, err
	}

	button.Label, button.Code = req.Label, req.Code
	if err := s.db.Save(button).Error; err != nil {
		return nil, fmt.Errorf("failed to update button: %w", err)
	}

	audit.LogAction(s.db, userID, audit.ActionUpdateButton, audit.Resource("button", id.String()), map[string]interface{}{
		"label": button.Label,
	})
	return button, nil
}

// Delete removes a button
func (s *KeypadService) Delete(userID, id uuid.UUID) error {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.KeypadButton{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete button: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	audit.LogAction(s.db, userID, audit.ActionDeleteButton, audit.Resource("button", id.String()), nil)
	return nil
}

func (s *KeypadService) checkLabelFree(userID uuid.UUID, label string, except uuid.UUID) error {
	var count int64
	q := s.db.Model(&models.KeypadButton{}).Where("user_id = ? AND label = ?", userID, label)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &ConflictError{Message: fmt.Sprintf("a button labelled %q already exists", label)}
	}
	return nil
}
