package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// InfoHandler handles server info requests
type InfoHandler struct {
	db      *gorm.DB
	version *VersionHandler
}

// NewInfoHandler creates a new InfoHandler
func NewInfoHandler(database *gorm.DB, version *VersionHandler) *InfoHandler {
	return &InfoHandler{db: database, version: version}
}

// InfoResponse represents the server info response
type InfoResponse struct {
	ServerID        string     `json:"server_id"`
	Version         string     `json:"version"`
	GoVersion       string     `json:"go_version"`
	OS              string     `json:"os"`
	Arch            string     `json:"arch"`
	LastUpdateCheck *time.Time `json:"last_update_check,omitempty"`
}

// GetInfo godoc
// @Summary Get server information
// @Description Returns the unique server ID, version and the time of the last update check
// @Tags system
// @Produce json
// @Success 200 {object} InfoResponse
// @Failure 500 {object} ErrorResponse
// @Router /info [get]
func (h *InfoHandler) GetInfo(c *gin.Context) {
	serverID, err := db.GetServerID(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to retrieve server ID",
		})
		return
	}

	resp := InfoResponse{
		ServerID:  serverID,
		Version:   Version,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if h.version != nil {
		resp.Version, _ = h.version.Resolve(c.Request.Context())
	}
	if at, ok, err := db.GetLastUpdateCheck(h.db); err == nil && ok {
		resp.LastUpdateCheck = &at
	}

	c.JSON(http.StatusOK, resp)
}
