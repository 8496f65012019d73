package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KeypadButtonFieldMax is the maximum length of a button label or code
const KeypadButtonFieldMax = 32

// KeypadButton is a custom button on the web keypad that sends a key
// sequence to the alarm panel.
type KeypadButton struct {
	ID        uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	UserID    uuid.UUID `gorm:"type:text;index" json:"user_id"`
	Label     string    `gorm:"size:32;not null" json:"label"`
	Code      string    `gorm:"size:32;not null" json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (k *KeypadButton) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}
