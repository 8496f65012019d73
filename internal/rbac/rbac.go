package rbac

import (
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelConf string

const (
	objAdmin   = "admin"
	objUpdater = "updater"

	actAdmin  = "admin"
	actUpdate = "update"
)

// Enforcer answers authorization questions for console users
type Enforcer struct {
	e *casbin.Enforcer
}

// NewEnforcer initializes the Casbin enforcer with policies stored in db
func NewEnforcer(db *gorm.DB, logger *slog.Logger) (*Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	logger.Info("RBAC enforcer initialized")
	return &Enforcer{e: e}, nil
}

// IsAdmin checks if user has admin privileges
func (r *Enforcer) IsAdmin(userID uuid.UUID) (bool, error) {
	return r.e.Enforce(userID.String(), objAdmin, actAdmin)
}

// CanUpdate checks if user may run updates. Admins always can.
func (r *Enforcer) CanUpdate(userID uuid.UUID) (bool, error) {
	ok, err := r.e.Enforce(userID.String(), objUpdater, actUpdate)
	if err != nil || ok {
		return ok, err
	}
	return r.IsAdmin(userID)
}

// MakeAdmin grants admin privileges to a user
func (r *Enforcer) MakeAdmin(userID uuid.UUID) error {
	return r.add(userID.String(), objAdmin, actAdmin)
}

// RevokeAdmin removes admin privileges from a user
func (r *Enforcer) RevokeAdmin(userID uuid.UUID) error {
	return r.remove(userID.String(), objAdmin, actAdmin)
}

// GrantUpdate lets a non-admin user run updates
func (r *Enforcer) GrantUpdate(userID uuid.UUID) error {
	return r.add(userID.String(), objUpdater, actUpdate)
}

// RevokeUpdate removes the update grant
func (r *Enforcer) RevokeUpdate(userID uuid.UUID) error {
	return r.remove(userID.String(), objUpdater, actUpdate)
}

// RemoveUser drops every policy held by a user
func (r *Enforcer) RemoveUser(userID uuid.UUID) error {
	_, err := r.e.RemoveFilteredPolicy(0, userID.String())
	return err
}

// GetAllAdminUserIDs returns a set of all user IDs that have admin privileges
func (r *Enforcer) GetAllAdminUserIDs() (map[uuid.UUID]bool, error) {
	policies, err := r.e.GetFilteredPolicy(1, objAdmin, actAdmin)
	if err != nil {
		return nil, err
	}

	adminUserIDs := make(map[uuid.UUID]bool, len(policies))
	for _, policy := range policies {
		if len(policy) >= 1 {
			if userID, err := uuid.Parse(policy[0]); err == nil {
				adminUserIDs[userID] = true
			}
		}
	}

	return adminUserIDs, nil
}

// add and remove rely on the adapter's autosave: each change is written as
// a single row. SavePolicy would rewrite the whole table inside a
// transaction, which cannot finish on a single-connection SQLite pool.
func (r *Enforcer) add(sub, obj, act string) error {
	_, err := r.e.AddPolicy(sub, obj, act)
	return err
}

func (r *Enforcer) remove(sub, obj, act string) error {
	_, err := r.e.RemovePolicy(sub, obj, act)
	return err
}
