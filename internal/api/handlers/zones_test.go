package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/alarmdecoder/webconsole/internal/models"
	"github.com/alarmdecoder/webconsole/internal/service"
	"github.com/gin-gonic/gin"
)

func TestZones_CRUD(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gdb := setupTestDB(t)
	h := NewZoneHandler(service.NewZoneService(gdb))

	r := gin.New()
	r.Use(withUser(createTestUser(t, gdb, "installer")))
	r.GET("/zones", h.ListZones)
	r.POST("/zones", h.CreateZone)
	r.GET("/zones/:id", h.GetZone)
	r.PUT("/zones/:id", h.UpdateZone)
	r.DELETE("/zones/:id", h.DeleteZone)

	w := serve(r, http.MethodPost, "/zones", strings.NewReader(`{"zone_number":3,"name":"Kitchen window"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var zone models.Zone
	if err := json.Unmarshal(w.Body.Bytes(), &zone); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"duplicate number", http.MethodPost, "/zones", `{"zone_number":3,"name":"Other"}`, http.StatusConflict},
		{"out of range", http.MethodPost, "/zones", `{"zone_number":300,"name":"Other"}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/zones", `{"zone_number":"three"}`, http.StatusBadRequest},
		{"rename", http.MethodPut, "/zones/" + zone.ID.String(), `{"zone_number":3,"name":"Kitchen"}`, http.StatusOK},
		{"get", http.MethodGet, "/zones/" + zone.ID.String(), "", http.StatusOK},
		{"bad id", http.MethodGet, "/zones/nope", "", http.StatusBadRequest},
		{"delete", http.MethodDelete, "/zones/" + zone.ID.String(), "", http.StatusNoContent},
		{"get deleted", http.MethodGet, "/zones/" + zone.ID.String(), "", http.StatusNotFound},
	}
	for _, tt := range tests {
		var body io.Reader
		if tt.body != "" {
			body = strings.NewReader(tt.body)
		}
		if w := serve(r, tt.method, tt.path, body); w.Code != tt.want {
			t.Errorf("%s: expected status %d, got %d: %s", tt.name, tt.want, w.Code, w.Body.String())
		}
	}
}
