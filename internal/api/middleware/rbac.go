package middleware

import (
	"net/http"

	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/alarmdecoder/webconsole/internal/rbac"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequireAdmin ensures the user is an admin.
func RequireAdmin(enforcer *rbac.Enforcer) gin.HandlerFunc {
	return require(enforcer.IsAdmin, "Admin access required")
}

// RequireUpdater ensures the user may check for and apply updates.
func RequireUpdater(enforcer *rbac.Enforcer) gin.HandlerFunc {
	return require(enforcer.CanUpdate, "Update permission required")
}

func require(allowed func(uuid.UUID) (bool, error), denied string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		ok, err := allowed(user.(*models.User).ID)
		if err != nil || !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": denied})
			c.Abort()
			return
		}

		c.Next()
	}
}
