package handlers

import (
	"net/http"

	"github.com/alarmdecoder/webconsole/internal/service"
	"github.com/gin-gonic/gin"
)

// KeypadHandler manages the current user's custom keypad buttons
type KeypadHandler struct {
	svc *service.KeypadService
}

func NewKeypadHandler(svc *service.KeypadService) *KeypadHandler {
	return &KeypadHandler{svc: svc}
}

// ListButtons godoc
// @Summary List keypad buttons
// @Tags keypad
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.KeypadButton
// @Router /keypad/buttons [get]
func (h *KeypadHandler) ListButtons(c *gin.Context) {
	buttons, err := h.svc.List(getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, buttons)
}

// GetButton godoc
// @Summary Get a keypad button
// @Tags keypad
// @Security BearerAuth
// @Produce json
// @Param id path string true "Button ID"
// @Success 200 {object} models.KeypadButton
// @Failure 404 {object} ErrorResponse
// @Router /keypad/buttons/{id} [get]
func (h *KeypadHandler) GetButton(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	button, err := h.svc.Get(getUserID(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, button)
}

// CreateButton godoc
// @Summary Create a keypad button
// @Tags keypad
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param button body service.ButtonRequest true "Button"
// @Success 201 {object} models.KeypadButton
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /keypad/buttons [post]
func (h *KeypadHandler) CreateButton(c *gin.Context) {
	var req service.ButtonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	button, err := h.svc.Create(getUserID(c), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, button)
}

// UpdateButton godoc
// @Summary Update a keypad button
// @Tags keypad
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Button ID"
// @Param button body service.ButtonRequest true "Button"
// @Success 200 {object} models.KeypadButton
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /keypad/buttons/{id} [put]
func (h *KeypadHandler) UpdateButton(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.ButtonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	button, err := h.svc.Update(getUserID(c), id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, button)
}

// DeleteButton godoc
// @Summary Delete a keypad button
// @Tags keypad
// @Security BearerAuth
// @Param id path string true "Button ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /keypad/buttons/{id} [delete]
func (h *KeypadHandler) DeleteButton(c *gin.Context) {
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
