package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// ZoneNumberMax is the highest zone number an alarm panel reports
	ZoneNumberMax = 255
	// ZoneNameMax is the maximum length of a zone name
	ZoneNameMax = 32
	// ZoneDescriptionMax is the maximum length of a zone description
	ZoneDescriptionMax = 255
)

// Zone names a numbered sensor zone of the alarm panel
type Zone struct {
	ID          uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	ZoneNumber  int       `gorm:"uniqueIndex;not null" json:"zone_number"`
	Name        string    `gorm:"size:32;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (z *Zone) BeforeCreate(tx *gorm.DB) error {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	return nil
}
