package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/gin-gonic/gin"
)

func TestGetInfo_ReturnsServerInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gdb := setupTestDB(t)

	serverID := "test-server-id-12345"
	gdb.Create(&models.ServerConfig{Key: models.ServerConfigKeyServerID, Value: serverID})

	checked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := db.SetLastUpdateCheck(gdb, checked); err != nil {
		t.Fatal(err)
	}

	handler := NewInfoHandler(gdb, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/info", nil)

	handler.GetInfo(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response InfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if response.ServerID != serverID {
		t.Errorf("expected server ID %s, got %s", serverID, response.ServerID)
	}
	if response.GoVersion != runtime.Version() {
		t.Errorf("expected go version %s, got %s", runtime.Version(), response.GoVersion)
	}
	if response.OS != runtime.GOOS || response.Arch != runtime.GOARCH {
		t.Errorf("unexpected platform %s/%s", response.OS, response.Arch)
	}
	if response.LastUpdateCheck == nil || !response.LastUpdateCheck.Equal(checked) {
		t.Errorf("expected last update check %v, got %v", checked, response.LastUpdateCheck)
	}
}

func TestGetInfo_NoServerID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gdb := setupTestDB(t)

	handler := NewInfoHandler(gdb, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/info", nil)

	handler.GetInfo(c)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}
