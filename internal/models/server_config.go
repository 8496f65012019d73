package models

import "time"

// ServerConfig is one row of the key/value table that holds server identity,
// updater bookkeeping, setup progress and device settings. Values are plain
// strings; callers own the encoding.
type ServerConfig struct {
	Key       string    `gorm:"primarykey;not null" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ServerConfig) TableName() string { return "server_configs" }

const (
	// ServerConfigKeyServerID holds the uuid generated on first start
	ServerConfigKeyServerID = "server_id"
	// ServerConfigKeyLastUpdateCheck holds an RFC 3339 UTC timestamp
	ServerConfigKeyLastUpdateCheck = "last_update_check"
	// ServerConfigKeySetupStage holds the first-run setup stage reached
	ServerConfigKeySetupStage = "setup_stage"

	// ServerConfigSettingPrefix namespaces device settings edited by admins
	ServerConfigSettingPrefix = "setting."
)
