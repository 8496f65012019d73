package auth

import (
	"errors"

	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/gin-gonic/gin"
)

// UserContextKey is the gin context key the middleware stores the user under
const UserContextKey = "user"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the bearer token for the console API. The same
// token is accepted as ?token= on the job log stream.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Authenticator is the login provider the router depends on
type Authenticator interface {
	Login(username, password string) (*LoginResponse, error)
	Middleware() gin.HandlerFunc
	GetUserFromContext(c *gin.Context) (*models.User, error)
}

// UserFromContext returns the user stored by Middleware
func UserFromContext(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return nil, ErrUnauthorized
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil, errors.New("invalid user in context")
	}
	return user, nil
}
