// Package web assembles the gin router of the admin surface.
package web

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homeglow/internal/web/api"
	"homeglow/internal/web/middleware"
)

// NewRouter builds the HTTP surface: a public health probe and the
// JWT-guarded emulator API.
func NewRouter(h *api.EmulatorHandler, jwtSecret string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	guarded := r.Group("/api/v1", middleware.RequireAuth(jwtSecret))
	h.Register(guarded)

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
