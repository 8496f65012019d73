package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestVersionResolve(t *testing.T) {
	describe := func(out string) func(context.Context) string {
		return func(context.Context) string { return out }
	}

	tests := []struct {
		name       string
		build      string
		describe   func(context.Context) string
		wantVer    string
		wantCommit string
	}{
		{"release build ignores checkout", "1.4.0", describe("v1.3-2-gabc1234"), "1.4.0", ""},
		{"dev build without checkout", "dev", nil, "dev", ""},
		{"dev build on tag", "dev", describe("v1.3-0-gabc1234"), "1.3", "abc1234"},
		{"dev build past tag", "dev", describe("v1.3-2-gabc1234"), "1.3.dev+abc1234", "abc1234"},
		{"dev build describe failed", "dev", describe(""), "dev", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := Version
			Version = tt.build
			defer func() { Version = old }()

			gotVer, gotCommit := NewVersionHandler(tt.describe).Resolve(context.Background())
			if gotVer != tt.wantVer || gotCommit != tt.wantCommit {
				t.Errorf("Resolve() = (%q, %q), want (%q, %q)", gotVer, gotCommit, tt.wantVer, tt.wantCommit)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	old := Version
	Version = "2.0.1"
	defer func() { Version = old }()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/version", nil)

	NewVersionHandler(nil).GetVersion(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp VersionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Version != "2.0.1" {
		t.Errorf("version = %q", resp.Version)
	}
}
