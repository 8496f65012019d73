package handlers

import (
	"net/http"

	"github.com/alarmdecoder/webconsole/internal/service"
	"github.com/gin-gonic/gin"
)

// ZoneHandler names the panel's zones. Reads are open to every user;
// the router limits writes to admins.
type ZoneHandler struct {
	svc *service.ZoneService
}

func NewZoneHandler(svc *service.ZoneService) *ZoneHandler {
	return &ZoneHandler{svc: svc}
}

// ListZones godoc
// @Summary List zones
// @Tags zones
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Zone
// @Router /zones [get]
func (h *ZoneHandler) ListZones(c *gin.Context) {
	zones, err := h.svc.List()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, zones)
}

// GetZone godoc
// @Summary Get a zone
// @Tags zones
// @Security BearerAuth
// @Produce json
// @Param id path string true "Zone ID"
// @Success 200 {object} models.Zone
// @Failure 404 {object} ErrorResponse
// @Router /zones/{id} [get]
func (h *ZoneHandler) GetZone(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	zone, err := h.svc.Get(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, zone)
}

// CreateZone godoc
// @Summary Name a zone (admin only)
// @Tags zones
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param zone body service.ZoneRequest true "Zone"
// @Success 201 {object} models.Zone
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /zones [post]
func (h *ZoneHandler) CreateZone(c *gin.Context) {
	var req service.ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	zone, err := h.svc.Create(getUserID(c), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, zone)
}

// UpdateZone godoc
// @Summary Update a zone (admin only)
// @Tags zones
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Zone ID"
// @Param zone body service.ZoneRequest true "Zone"
// @Success 200 {object} models.Zone
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /zones/{id} [put]
func (h *ZoneHandler) UpdateZone(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	zone, err := h.svc.Update(getUserID(c), id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, zone)
}

// DeleteZone godoc
// @Summary Delete a zone (admin only)
// @Tags zones
// @Security BearerAuth
// @Param id path string true "Zone ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /zones/{id} [delete]
func (h *ZoneHandler) DeleteZone(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(getUserID(c), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
