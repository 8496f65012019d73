package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/alarmdecoder/webconsole/internal/rbac"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func setupAdminRouter(t *testing.T) (*gin.Engine, *gorm.DB, *rbac.Enforcer, *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := setupTestDB(t)
	enforcer, err := rbac.NewEnforcer(gdb, discardLogger())
	if err != nil {
		t.Fatalf("failed to create enforcer: %v", err)
	}
	admin := createTestUser(t, gdb, "admin")
	if err := enforcer.MakeAdmin(admin.ID); err != nil {
		t.Fatal(err)
	}

	h := NewAdminHandler(gdb, enforcer)
	r := gin.New()
	r.Use(withUser(admin))
	r.GET("/admin/users", h.ListUsers)
	r.POST("/admin/users", h.CreateUser)
	r.POST("/admin/users/:id/toggle-admin", h.ToggleAdmin)
	r.DELETE("/admin/users/:id", h.DeleteUser)
	r.GET("/admin/audit-logs", h.ListAuditLogs)
	return r, gdb, enforcer, admin
}

func TestAdmin_CreateListDeleteUser(t *testing.T) {
	r, _, enforcer, _ := setupAdminRouter(t)

	w := serve(r, http.MethodPost, "/admin/users", strings.NewReader(
		`{"username":"installer","email":"installer@example.com","password":"s3cret-pass","can_update":true}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var created models.User
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if ok, _ := enforcer.CanUpdate(created.ID); !ok {
		t.Error("expected update permission for new user")
	}
	if ok, _ := enforcer.IsAdmin(created.ID); ok {
		t.Error("new user should not be admin")
	}

	w = serve(r, http.MethodGet, "/admin/users", nil)
	var users []UserWithAdminStatus
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		switch u.Username {
		case "admin":
			if !u.IsAdmin || !u.CanUpdate {
				t.Errorf("admin flags wrong: %+v", u)
			}
		case "installer":
			if u.IsAdmin || !u.CanUpdate {
				t.Errorf("installer flags wrong: %+v", u)
			}
		}
	}

	w = serve(r, http.MethodDelete, "/admin/users/"+created.ID.String(), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected status %d, got %d", http.StatusNoContent, w.Code)
	}
	if ok, _ := enforcer.CanUpdate(created.ID); ok {
		t.Error("policies should be removed with the user")
	}

	w = serve(r, http.MethodGet, "/admin/audit-logs?action=delete_user", nil)
	var logs []models.AuditLog
	if err := json.Unmarshal(w.Body.Bytes(), &logs); err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Errorf("expected 1 delete_user audit entry, got %d", len(logs))
	}
}

func TestAdmin_CreateUserValidation(t *testing.T) {
	r, _, _, _ := setupAdminRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing username", `{"email":"a@example.com","password":"s3cret-pass"}`},
		{"bad email", `{"username":"a","email":"nope","password":"s3cret-pass"}`},
		{"short password", `{"username":"a","email":"a@example.com","password":"short"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodPost, "/admin/users", strings.NewReader(tt.body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
		})
	}
}

func TestAdmin_SelfProtection(t *testing.T) {
	r, _, _, admin := setupAdminRouter(t)

	if w := serve(r, http.MethodDelete, "/admin/users/"+admin.ID.String(), nil); w.Code != http.StatusBadRequest {
		t.Errorf("delete self: expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if w := serve(r, http.MethodPost, "/admin/users/"+admin.ID.String()+"/toggle-admin", nil); w.Code != http.StatusBadRequest {
		t.Errorf("toggle self: expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestAdmin_ToggleAdmin(t *testing.T) {
	r, gdb, enforcer, _ := setupAdminRouter(t)
	user := createTestUser(t, gdb, "bob")

	for _, want := range []bool{true, false} {
		w := serve(r, http.MethodPost, "/admin/users/"+user.ID.String()+"/toggle-admin", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if ok, _ := enforcer.IsAdmin(user.ID); ok != want {
			t.Errorf("IsAdmin = %v, want %v", ok, want)
		}
	}
}
