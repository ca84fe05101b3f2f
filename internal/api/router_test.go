package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ShivamG1979/FeedBack-Backeng/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Metrics(t *testing.T) {
	w := doRequest(newTestRouter(newStubService()), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	w := doRequest(newTestRouter(newStubService()), http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ServesStaticInProduction(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	cfg := testConfig()
	cfg.Server.Environment = "production"
	cfg.Server.StaticDir = dir
	r := RegisterRoutes(NewFeedbackHandler(newStubService()), NewStreamHandler(nil), nil, cfg)

	w := doRequest(r, http.MethodGet, "/app.js", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = doRequest(r, http.MethodGet, "/dashboard/settings", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>app</html>", w.Body.String())

	w = doRequest(r, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// API routes still win over the fallback
	w = doRequest(r, http.MethodGet, "/api/feedbacks", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRouter_DefaultConfigDoesNotLimitWrites(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := config.Load()
	r := RegisterRoutes(NewFeedbackHandler(newStubService()), NewStreamHandler(nil), nil, cfg)

	for i := 0; i < 3*cfg.RateLimit.RequestsPerSecond; i++ {
		w := doRequest(r, http.MethodPost, "/api/submit-feedback", `{"name":"Ann","email":"a@x.io","message":"Great"}`)
		require.Equal(t, http.StatusCreated, w.Code, "request %d", i)
	}
}

func TestRouter_RateLimitWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 2}
	r := RegisterRoutes(NewFeedbackHandler(newStubService()), NewStreamHandler(nil), nil, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/submit-feedback", strings.NewReader(`{"name":"Ann","email":"a@x.io","message":"Great"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.2.0.9:4000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	// reads are never limited
	w := doRequest(r, http.MethodGet, "/api/feedbacks", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
