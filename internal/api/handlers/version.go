package handlers

import (
	"context"
	"net/http"
	"runtime"

	"github.com/alarmdecoder/webconsole/internal/updater"
	"github.com/gin-gonic/gin"
)

// Version is set via ldflags at build time
var Version = "dev"

// VersionResponse describes the running console
type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// VersionHandler reports the console version
type VersionHandler struct {
	describe func(ctx context.Context) string
}

// NewVersionHandler creates a VersionHandler. describe returns
// `git describe` output for the source checkout and is consulted only for
// development builds; it may be nil.
func NewVersionHandler(describe func(ctx context.Context) string) *VersionHandler {
	return &VersionHandler{describe: describe}
}

// Resolve returns the build version, or the one derived from the checkout
// for development builds
func (h *VersionHandler) Resolve(ctx context.Context) (version, commit string) {
	if Version != "dev" || h.describe == nil {
		return Version, ""
	}
	out := h.describe(ctx)
	if out == "" {
		return Version, ""
	}
	d := updater.ParseDescribe(out)
	return d.Version(), d.Commit
}

// GetVersion godoc
// @Summary Get version information
// @Description Returns version information about the console
// @Tags system
// @Produce json
// @Success 200 {object} VersionResponse
// @Router /version [get]
func (h *VersionHandler) GetVersion(c *gin.Context) {
	version, commit := h.Resolve(c.Request.Context())
	c.JSON(http.StatusOK, VersionResponse{
		Version:   version,
		Commit:    commit,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	})
}
