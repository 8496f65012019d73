package service

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/alarmdecoder/webconsole/internal/audit"
	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Device settings
const (
	SettingDeviceType     = "device_type"
	SettingDeviceAddress  = "device_address"
	SettingDevicePort     = "device_port"
	SettingDevicePath     = "device_path"
	SettingDeviceBaudrate = "device_baudrate"
	SettingUseSSL         = "use_ssl"
	SettingPanelMode      = "panel_mode"
)

type settingDef struct {
	fallback string
	choices  []string
	check    func(string) error
}

var settingDefs = map[string]settingDef{
	SettingDeviceType:     {fallback: "network", choices: []string{"network", "serial"}},
	SettingDeviceAddress:  {fallback: "localhost", check: checkHost},
	SettingDevicePort:     {fallback: "10000", check: checkPort},
	SettingDevicePath:     {fallback: "/dev/ttyAMA0", check: checkPath},
	SettingDeviceBaudrate: {fallback: "115200", choices: []string{"1200", "2400", "4800", "9600", "19200", "38400", "57600", "115200"}},
	SettingUseSSL:         {fallback: "false", choices: []string{"true", "false"}},
	SettingPanelMode:      {fallback: "ademco", choices: []string{"ademco", "dsc"}},
}

func checkHost(v string) error {
	if v == "" || len(v) > 253 || strings.ContainsAny(v, " /\t") {
		return fmt.Errorf("must be a host name or address")
	}
	return nil
}

func checkPort(v string) error {
	port, err := strconv.Atoi(v)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port between 1 and 65535")
	}
	return nil
}

func checkPath(v string) error {
	if !strings.HasPrefix(v, "/") {
		return fmt.Errorf("must be an absolute path")
	}
	return nil
}

// SettingsService stores the device settings in the server config table.
// Keys it does not know are rejected.
type SettingsService struct {
	db *gorm.DB
}

// NewSettingsService creates a SettingsService
func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// All returns every setting, stored values over defaults
func (s *SettingsService) All() (map[string]string, error) {
	values := make(map[string]string, len(settingDefs))
	for key, def := range settingDefs {
		values[key] = def.fallback
	}

	var rows []models.ServerConfig
	if err := s.db.Where("key LIKE ?", models.ServerConfigSettingPrefix+"%").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	for _, row := range rows {
		key := strings.TrimPrefix(row.Key, models.ServerConfigSettingPrefix)
		if _, known := settingDefs[key]; known {
			values[key] = row.Value
		}
	}
	return values, nil
}

// Update validates every value before storing any of them
func (s *SettingsService) Update(userID uuid.UUID, changes map[string]string) (map[string]string, error) {
	if len(changes) == 0 {
		return nil, &ValidationError{Message: "no settings given"}
	}
	keys := make([]string, 0, len(changes))
	for key, value := range changes {
		value = strings.TrimSpace(value)
		changes[key] = value
		if err := validateSetting(key, value); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			if err := db.SetConfig(tx, models.ServerConfigSettingPrefix+key, changes[key]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.LogAction(s.db, userID, audit.ActionUpdateSetting, audit.Resource("settings", strings.Join(keys, ",")), changes)
	return s.All()
}

func validateSetting(key, value string) error {
	def, known := settingDefs[key]
	if !known {
		return &ValidationError{Field: key, Message: fmt.Sprintf("unknown setting %q", key)}
	}
	if def.choices != nil && !slices.Contains(def.choices, value) {
		return &ValidationError{Field: key, Message: fmt.Sprintf("%s must be one of %s", key, strings.Join(def.choices, ", "))}
	}
	if def.check != nil {
		if err := def.check(value); err != nil {
			return &ValidationError{Field: key, Message: fmt.Sprintf("%s %v", key, err)}
		}
	}
	return nil
}
