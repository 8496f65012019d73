package handlers

import (
	"net/http"

	"github.com/alarmdecoder/webconsole/internal/audit"
	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/alarmdecoder/webconsole/internal/rbac"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db       *gorm.DB
	enforcer *rbac.Enforcer
}

func NewAdminHandler(database *gorm.DB, enforcer *rbac.Enforcer) *AdminHandler {
	return &AdminHandler{db: database, enforcer: enforcer}
}

// ListUsers godoc
// @Summary List all users (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} UserWithAdminStatus
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var users []models.User
	if err := h.db.Order("username ASC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch users"})
		return
	}

	adminUserIDs, err := h.enforcer.GetAllAdminUserIDs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to check admin status"})
		return
	}

	usersWithStatus := make([]UserWithAdminStatus, len(users))
	for i, user := range users {
		canUpdate, _ := h.enforcer.CanUpdate(user.ID)
		usersWithStatus[i] = UserWithAdminStatus{
			User:      user,
			IsAdmin:   adminUserIDs[user.ID],
			CanUpdate: canUpdate,
		}
	}

	c.JSON(http.StatusOK, usersWithStatus)
}

// CreateUser godoc
// @Summary Create a new user (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param user body CreateUserRequest true "User details"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Router /admin/users [post]
func (h *AdminHandler) CreateUser(c *gin.Context) {
	adminID := getUserID(c)

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	user, err := db.CreateUser(h.db, req.Username, req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create user"})
		return
	}

	if req.IsAdmin {
		if err := h.enforcer.MakeAdmin(user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to grant admin permissions"})
			return
		}
	} else if req.CanUpdate {
		if err := h.enforcer.GrantUpdate(user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to grant update permission"})
			return
		}
	}

	audit.LogAction(h.db, adminID, audit.ActionCreateUser, audit.Resource("user", user.ID.String()), map[string]interface{}{
		"username":   user.Username,
		"email":      user.Email,
		"is_admin":   req.IsAdmin,
		"can_update": req.CanUpdate,
	})

	c.JSON(http.StatusCreated, user)
}

// ToggleAdmin godoc
// @Summary Toggle admin status for a user
// @Tags admin
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 200 {object} UserWithAdminStatus
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/toggle-admin [post]
func (h *AdminHandler) ToggleAdmin(c *gin.Context) {
	adminID := getUserID(c)
	userID, ok := parseID(c)
	if !ok {
		return
	}
	if userID == adminID {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Cannot change your own admin status"})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}

	isAdmin, _ := h.enforcer.IsAdmin(user.ID)
	if isAdmin {
		if err := h.enforcer.RevokeAdmin(user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to revoke admin"})
			return
		}
		audit.LogAction(h.db, adminID, audit.ActionRevokeAdmin, audit.Resource("user", user.ID.String()), nil)
	} else {
		if err := h.enforcer.MakeAdmin(user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to make admin"})
			return
		}
		audit.LogAction(h.db, adminID, audit.ActionMakeAdmin, audit.Resource("user", user.ID.String()), nil)
	}

	canUpdate, _ := h.enforcer.CanUpdate(user.ID)
	c.JSON(http.StatusOK, UserWithAdminStatus{User: user, IsAdmin: !isAdmin, CanUpdate: canUpdate})
}

// DeleteUser godoc
// @Summary Delete a user (admin only)
// @Tags admin
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	adminID := getUserID(c)
	userID, ok := parseID(c)
	if !ok {
		return
	}

	if userID == adminID {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Cannot delete yourself"})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}

	if err := h.db.Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete user"})
		return
	}
	if err := h.enforcer.RemoveUser(user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to remove user policies"})
		return
	}

	audit.LogAction(h.db, adminID, audit.ActionDeleteUser, audit.Resource("user", user.ID.String()), map[string]interface{}{
		"username": user.Username,
	})

	c.Status(http.StatusNoContent)
}

// ListAuditLogs godoc
// @Summary List audit logs
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param user_id query string false "Filter by user ID"
// @Param action query string false "Filter by action"
// @Success 200 {array} models.AuditLog
// @Router /admin/audit-logs [get]
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	query := h.db.Preload("User").Order("timestamp DESC").Limit(100)

	if userID := c.Query("user_id"); userID != "" {
		if _, err := uuid.Parse(userID); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid user ID"})
			return
		}
		query = query.Where("user_id = ?", userID)
	}

	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch audit logs"})
		return
	}

	c.JSON(http.StatusOK, logs)
}

// Request types
type CreateUserRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	IsAdmin   bool   `json:"is_admin"`
	CanUpdate bool   `json:"can_update"`
}

type UserWithAdminStatus struct {
	models.User
	IsAdmin   bool `json:"is_admin"`
	CanUpdate bool `json:"can_update"`
}
