package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student_records/internal/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	yaml := "app:\n  mode: test\nstorage:\n  local_path: " + filepath.Join(dir, "archive") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	cfg.App.LogFile = ""
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}

	a, err := NewApp(cfg, dir)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func serve(t *testing.T, a *App) http.Handler {
	t.Helper()
	p, err := a.Service.LoadFromText(context.Background(), "testdata/promotion.txt")
	require.NoError(t, err)
	return a.Handler(p)
}

func TestNewAppWithoutBackends(t *testing.T) {
	a := newTestApp(t)
	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.NotNil(t, a.Service)
}

func TestRoutes(t *testing.T) {
	a := newTestApp(t)
	h := serve(t, a)

	for _, path := range []string{
		"/api/health",
		"/api/courses",
		"/api/students",
		"/api/students/1",
		"/api/ranking/top",
		"/api/ranking/courses/ANGLAIS/top",
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"), path)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "student_records_promotion_students 4")
}

func TestPreflight(t *testing.T) {
	a := newTestApp(t)
	h := serve(t, a)

	req := httptest.NewRequest(http.MethodOptions, "/api/students/1/grades", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestConfigCallbacks(t *testing.T) {
	a := newTestApp(t)
	h := serve(t, a)

	next := *a.Config
	next.Ranking.TopOverall = 1
	for _, cb := range a.configCallbacks {
		cb(&next)
	}
	assert.Same(t, &next, a.Service.Config())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ranking/top", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"total":1`))
}
