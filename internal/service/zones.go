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

// ZoneRequest holds the editable fields of a zone
type ZoneRequest struct {
	ZoneNumber  int    `json:"zone_number"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ZoneService names the panel's sensor zones
type ZoneService struct {
	db *gorm.DB
}

// NewZoneService creates a ZoneService
func NewZoneService(db *gorm.DB) *ZoneService {
	return &ZoneService{db: db}
}

func (r *ZoneRequest) normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)

	if r.ZoneNumber < 1 || r.ZoneNumber > models.ZoneNumberMax {
		return &ValidationError{Field: "zone_number", Message: fmt.Sprintf("zone_number must be between 1 and %d", models.ZoneNumberMax)}
	}
	if r.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(r.Name) > models.ZoneNameMax {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", models.ZoneNameMax)}
	}
	if utf8.RuneCountInString(r.Description) > models.ZoneDescriptionMax {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("description must be at most %d characters", models.ZoneDescriptionMax)}
	}
	return nil
}

// List returns every zone ordered by zone number
func (s *ZoneService) List() ([]models.Zone, error) {
	var zones []models.Zone
	if err := s.db.Order("zone_number ASC").Find(&zones).Error; err != nil {
		return nil, err
	}
	return zones, nil
}

// Get returns one zone
func (s *ZoneService) Get(id uuid.UUID) (*models.Zone, error) {
	var zone models.Zone
	if err := s.db.Where("id = ?", id).First(&zone).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &zone, nil
}

// Create names a zone. A zone number can be named once.
func (s *ZoneService) Create(userID uuid.UUID, req ZoneRequest) (*models.Zone, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	if err := s.checkNumberFree(req.ZoneNumber, uuid.Nil); err != nil {
		return nil, err
	}

	zone := models.Zone{ZoneNumber: req.ZoneNumber, Name: req.Name, Description: req.Description}
	if err := s.db.Create(&zone).Error; err != nil {
		return nil, fmt.Errorf("failed to create zone: %w", err)
	}

	audit.LogAction(s.db, userID, audit.ActionCreateZone, audit.Resource("zone", zone.ID.String()), map[string]interface{}{
		"zone_number": zone.ZoneNumber,
		"name":        zone.Name,
	})
	return &zone, nil
}

// Update replaces every field of a zone
func (s *ZoneService) Update(userID, id uuid.UUID, req ZoneRequest) (*models.Zone, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	zone, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.checkNumberFree(req.ZoneNumber, id); err != nil {
		return nil, err
	}

	zone.ZoneNumber, zone.Name, zone.Description = req.ZoneNumber, req.Name, req.Description
	if err := s.db.Save(zone).Error; err != nil {
		return nil, fmt.Errorf("failed to update zone: %w", err)
	}

	audit.LogAction(s.db, userID, audit.ActionUpdateZone, audit.Resource("zone", id.String()), map[string]interface{}{
		"zone_number": zone.ZoneNumber,
		"name":        zone.Name,
	})
	return zone, nil
}

// Delete removes a zone
func (s *ZoneService) Delete(userID, id uuid.UUID) error {
	result := s.db.Where("id = ?", id).Delete(&models.Zone{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete zone: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	audit.LogAction(s.db, userID, audit.ActionDeleteZone, audit.Resource("zone", id.String()), nil)
	return nil
}

func (s *ZoneService) checkNumberFree(number int, except uuid.UUID) error {
	var count int64
	q := s.db.Model(&models.Zone{}).Where("zone_number = ?", number)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &ConflictError{Message: fmt.Sprintf("zone %d is already named", number)}
	}
	return nil
}
