package db

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrConfigNotSet is returned when a server config key has no value
var ErrConfigNotSet = errors.New("server config not set")

// GetConfig returns the value stored under key
func GetConfig(db *gorm.DB, key string) (string, error) {
	var config models.ServerConfig
	err := db.Where("key = ?", key).First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", ErrConfigNotSet, key)
		}
		return "", fmt.Errorf("failed to query server config: %w", err)
	}
	return config.Value, nil
}

// SetConfig stores value under key, replacing any previous value
func SetConfig(db *gorm.DB, key, value string) error {
	config := models.ServerConfig{Key: key, Value: value}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&config).Error
	if err != nil {
		return fmt.Errorf("failed to store server config %s: %w", key, err)
	}
	return nil
}

// GetOrCreateServerID retrieves the server ID from the database,
// or generates and stores a new one if it doesn't exist.
// This should be called during server startup after migrations.
func GetOrCreateServerID(db *gorm.DB) (string, error) {
	serverID, err := GetConfig(db, models.ServerConfigKeyServerID)
	if err == nil {
		slog.Debug("Found existing server ID", "server_id", serverID)
		return serverID, nil
	}
	if !errors.Is(err, ErrConfigNotSet) {
		return "", err
	}

	serverID = uuid.New().String()
	config := models.ServerConfig{
		Key:   models.ServerConfigKeyServerID,
		Value: serverID,
	}
	if err := db.Create(&config).Error; err != nil {
		return "", fmt.Errorf("failed to create server ID: %w", err)
	}

	slog.Info("Generated new server ID", "server_id", serverID)
	return serverID, nil
}

// GetServerID retrieves the server ID from the database.
// Returns an error if the server ID has not been initialized.
func GetServerID(db *gorm.DB) (string, error) {
	serverID, err := GetConfig(db, models.ServerConfigKeyServerID)
	if errors.Is(err, ErrConfigNotSet) {
		return "", fmt.Errorf("server ID not initialized")
	}
	return serverID, err
}

// GetLastUpdateCheck returns when updates were last checked. ok is false
// when no check has been recorded.
func GetLastUpdateCheck(db *gorm.DB) (at time.Time, ok bool, err error) {
	value, err := GetConfig(db, models.ServerConfigKeyLastUpdateCheck)
	if errors.Is(err, ErrConfigNotSet) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	at, err = time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid %s value %q: %w", models.ServerConfigKeyLastUpdateCheck, value, err)
	}
	return at, true, nil
}

// SetLastUpdateCheck records the time of the latest update check
func SetLastUpdateCheck(db *gorm.DB, at time.Time) error {
	return SetConfig(db, models.ServerConfigKeyLastUpdateCheck, at.UTC().Format(time.RFC3339))
}
