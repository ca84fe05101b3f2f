package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newCorsRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorsMiddleware(origins))
	r.GET("/api/feedbacks", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestCorsMiddleware_AllowAll(t *testing.T) {
	r := newCorsRouter(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/feedbacks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorsMiddleware_AllowList(t *testing.T) {
	r := newCorsRouter([]string{"https://feedback.example.com"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/feedbacks", nil)
	req.Header.Set("Origin", "https://feedback.example.com")
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://feedback.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/feedbacks", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
