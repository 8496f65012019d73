package handlers

import (
	"net/http"

	"github.com/alarmdecoder/webconsole/internal/service"
	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	svc *service.SettingsService
}

func NewSettingsHandler(svc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// GetSettings godoc
// @Summary Get device settings (admin only)
// @Tags settings
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /admin/settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.svc.All()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary Change device settings (admin only)
// @Description Only the given keys change. Unknown keys or invalid values reject the whole request.
// @Tags settings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param settings body map[string]string true "Settings to change"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /admin/settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var changes map[string]string
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	settings, err := h.svc.Update(getUserID(c), changes)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
