package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/alarmdecoder/webconsole/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func setupKeypadRouter(t *testing.T, gdb *gorm.DB, user *models.User) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewKeypadHandler(service.NewKeypadService(gdb))

	r := gin.New()
	r.Use(withUser(user))
	r.GET("/keypad/buttons", h.ListButtons)
	r.POST("/keypad/buttons", h.CreateButton)
	r.GET("/keypad/buttons/:id", h.GetButton)
	r.PUT("/keypad/buttons/:id", h.UpdateButton)
	r.DELETE("/keypad/buttons/:id", h.DeleteButton)
	return r
}

func TestKeypadButtons_CRUD(t *testing.T) {
	gdb := setupTestDB(t)
	r := setupKeypadRouter(t, gdb, createTestUser(t, gdb, "alice"))

	w := serve(r, http.MethodPost, "/keypad/buttons", strings.NewReader(`{"label":" Stay ","code":"1234*3"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var button models.KeypadButton
	if err := json.Unmarshal(w.Body.Bytes(), &button); err != nil {
		t.Fatal(err)
	}
	if button.Label != "Stay" {
		t.Errorf("label = %q, want trimmed %q", button.Label, "Stay")
	}

	w = serve(r, http.MethodPost, "/keypad/buttons", strings.NewReader(`{"label":"Stay","code":"1234*2"}`))
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate label: expected status %d, got %d", http.StatusConflict, w.Code)
	}

	w = serve(r, http.MethodPut, "/keypad/buttons/"+button.ID.String(), strings.NewReader(`{"label":"Away","code":"1234*2"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	w = serve(r, http.MethodGet, "/keypad/buttons/"+button.ID.String(), nil)
	if err := json.Unmarshal(w.Body.Bytes(), &button); err != nil {
		t.Fatal(err)
	}
	if button.Label != "Away" || button.Code != "1234*2" {
		t.Errorf("unexpected button after update: %+v", button)
	}

	w = serve(r, http.MethodDelete, "/keypad/buttons/"+button.ID.String(), nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete: expected status %d, got %d", http.StatusNoContent, w.Code)
	}

	w = serve(r, http.MethodGet, "/keypad/buttons", nil)
	var buttons []models.KeypadButton
	if err := json.Unmarshal(w.Body.Bytes(), &buttons); err != nil {
		t.Fatal(err)
	}
	if len(buttons) != 0 {
		t.Errorf("expected no buttons, got %d", len(buttons))
	}
}

func TestKeypadButtons_Validation(t *testing.T) {
	gdb := setupTestDB(t)
	r := setupKeypadRouter(t, gdb, createTestUser(t, gdb, "alice"))

	tests := []struct {
		name string
		body string
	}{
		{"missing label", `{"code":"1234"}`},
		{"blank code", `{"label":"Panic","code":"   "}`},
		{"label too long", `{"label":"` + strings.Repeat("x", models.KeypadButtonFieldMax+1) + `","code":"1"}`},
		{"not json", `label=x`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodPost, "/keypad/buttons", strings.NewReader(tt.body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
		})
	}
}

func TestKeypadButtons_OtherUsersHidden(t *testing.T) {
	gdb := setupTestDB(t)
	alice := setupKeypadRouter(t, gdb, createTestUser(t, gdb, "alice"))
	bob := setupKeypadRouter(t, gdb, createTestUser(t, gdb, "bob"))

	w := serve(alice, http.MethodPost, "/keypad/buttons", strings.NewReader(`{"label":"Stay","code":"1234*3"}`))
	var button models.KeypadButton
	if err := json.Unmarshal(w.Body.Bytes(), &button); err != nil {
		t.Fatal(err)
	}

	if w := serve(bob, http.MethodGet, "/keypad/buttons/"+button.ID.String(), nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if w := serve(bob, http.MethodDelete, "/keypad/buttons/"+button.ID.String(), nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	// same label is fine for a different user
	if w := serve(bob, http.MethodPost, "/keypad/buttons", strings.NewReader(`{"label":"Stay","code":"9999*3"}`)); w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
}
