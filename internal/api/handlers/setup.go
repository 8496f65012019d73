package handlers

import (
	"net/http"

	"github.com/alarmdecoder/webconsole/internal/auth"
	"github.com/alarmdecoder/webconsole/internal/service"
	"github.com/gin-gonic/gin"
)

// SetupHandler serves the first-run setup steps. The routes are public;
// the service refuses every step once an account exists.
type SetupHandler struct {
	svc           *service.SetupService
	authenticator auth.Authenticator
}

func NewSetupHandler(svc *service.SetupService, authenticator auth.Authenticator) *SetupHandler {
	return &SetupHandler{svc: svc, authenticator: authenticator}
}

// GetStatus godoc
// @Summary First-run setup progress
// @Tags setup
// @Produce json
// @Success 200 {object} service.SetupStatus
// @Router /setup [get]
func (h *SetupHandler) GetStatus(c *gin.Context) {
	status, err := h.svc.Status()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ConfigureDevice godoc
// @Summary Configure the alarm interface device
// @Tags setup
// @Accept json
// @Produce json
// @Param settings body map[string]string true "Device settings, device_type required"
// @Success 200 {object} service.SetupStatus
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /setup/device [post]
func (h *SetupHandler) ConfigureDevice(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	status, err := h.svc.ConfigureDevice(values)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// CreateAccount godoc
// @Summary Create the first administrator and finish setup
// @Description Answers with a login token for the new account.
// @Tags setup
// @Accept json
// @Produce json
// @Param account body service.AccountRequest true "Administrator account"
// @Success 201 {object} auth.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /setup/account [post]
func (h *SetupHandler) CreateAccount(c *gin.Context) {
	var req service.AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	user, err := h.svc.CreateAccount(req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	resp, err := h.authenticator.Login(user.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, resp)
}
