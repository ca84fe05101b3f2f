package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ShivamG1979/FeedBack-Backeng/internal/config"
	"github.com/ShivamG1979/FeedBack-Backeng/internal/dto/resp"
	"github.com/ShivamG1979/FeedBack-Backeng/internal/metrics"
	"github.com/ShivamG1979/FeedBack-Backeng/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(feedbackHandler *FeedbackHandler, streamHandler *StreamHandler, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	r := gin.New()

	// Global Middleware
	r.Use(
		middleware.CorsMiddleware(cfg.CORS.AllowedOrigins),
		middleware.RequestID(),
		middleware.GinZapLogger(),
		middleware.GinZapRecovery(),
		middleware.HttpMiddleware(),
		middleware.TraceMiddleware(),
	)
	r.SetTrustedProxies(nil)

	r.GET("/health", feedbackHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Rate Limiter for Write Operations
	var writeLimiter gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		writeLimiter = middleware.RateLimitMiddleware(rdb, cfg.RateLimit.RequestsPerSecond)
	}

	api := r.Group("/api")
	{
		api.POST("/submit-feedback", writeLimiter, feedbackHandler.SubmitFeedback)
		api.GET("/feedbacks", feedbackHandler.ListFeedbacks)
		api.GET("/feedbacks/stream", streamHandler.WatchFeedbacks)
		api.PUT("/feedbacks/:id", writeLimiter, feedbackHandler.UpdateFeedback)
		api.DELETE("/feedbacks/:id", writeLimiter, feedbackHandler.DeleteFeedback)
	}

	if cfg.Server.IsProduction() {
		r.NoRoute(serveStatic(cfg.Server.StaticDir))
	} else {
		r.NoRoute(notFound)
	}
	return r
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, resp.MessageResponse{Message: "Route not found"})
}

// serveStatic serves files from dir and falls back to index.html for client-side routes.
func serveStatic(dir string) gin.HandlerFunc {
	index := filepath.Join(dir, "index.html")
	return func(c *gin.Context) {
		method := c.Request.Method
		if (method != http.MethodGet && method != http.MethodHead) || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			notFound(c)
			return
		}

		// Clean against "/" so the result cannot climb out of dir.
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+c.Request.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			c.File(name)
			return
		}
		if _, err := os.Stat(index); err != nil {
			notFound(c)
			return
		}
		c.File(index)
	}
}
