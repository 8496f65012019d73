package audit

import (
	"encoding/json"
	"time"

	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogAction records an audit log entry
func LogAction(db *gorm.DB, userID uuid.UUID, action, resource string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	log := models.AuditLog{
		UserID:      userID,
		Action:      action,
		Resource:    resource,
		DetailsJSON: string(detailsJSON),
		Timestamp:   time.Now(),
	}

	return db.Create(&log).Error
}

// Resource formats a resource reference such as "component:webapp"
func Resource(kind, id string) string {
	return kind + ":" + id
}

// Audit actions constants
const (
	ActionCreateUser    = "create_user"
	ActionDeleteUser    = "delete_user"
	ActionMakeAdmin     = "make_admin"
	ActionRevokeAdmin   = "revoke_admin"
	ActionLogin         = "login"
	ActionLoginFailed   = "login_failed"
	ActionCheckUpdates  = "check_updates"
	ActionUpdate        = "update_component"
	ActionCreateButton  = "create_button"
	ActionUpdateButton  = "update_button"
	ActionDeleteButton  = "delete_button"
	ActionMigrateSchema = "migrate_schema"
	ActionUpdateSetting = "update_setting"
	ActionCreateZone    = "create_zone"
	ActionUpdateZone    = "update_zone"
	ActionDeleteZone    = "delete_zone"
	ActionCompleteSetup = "complete_setup"
)
