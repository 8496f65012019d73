package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alarmdecoder/webconsole/internal/config"
	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/alarmdecoder/webconsole/internal/updater"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "handlers.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb, "sqlite"); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func createTestUser(t *testing.T, gdb *gorm.DB, username string) *models.User {
	t.Helper()
	user, err := db.CreateUser(gdb, username, username+"@example.com", "password123")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// withUser installs user into the context the way the auth middleware does
func withUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", user)
		c.Next()
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(r *gin.Engine, method, path string, body io.Reader, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// stubComponent is an up to date component
type stubComponent struct {
	name  string
	needs bool
}

func (s *stubComponent) Name() string                { return s.name }
func (s *stubComponent) Refresh(ctx context.Context) {}
func (s *stubComponent) NeedsUpdate() bool           { return s.needs }

func (s *stubComponent) Status() updater.Status {
	return updater.Status{
		Name:          s.name,
		Enabled:       true,
		NeedsUpdate:   s.needs,
		CommitsBehind: updater.Known(0),
		CommitsAhead:  updater.Known(0),
		Status:        "Up to date!",
	}
}

func (s *stubComponent) Update(ctx context.Context) (updater.Result, error) {
	return updater.Result{Status: updater.StatusPass}, nil
}
