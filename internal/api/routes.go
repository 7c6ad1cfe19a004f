package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/riptide-app/riptide/internal/preferences"
)

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	// Liveness check, outside auth.
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")

	// Auth routes stay reachable without a token.
	s.authHandlers.RegisterRoutes(api.Group("/auth"))

	// Everything else requires a bearer token once a password is set.
	protected := api.Group("", s.authHandlers.Middleware())

	protected.GET("/status", s.getStatus)
	protected.GET("/analytics", s.getAnalytics)

	sources := protected.Group("/sources")
	sources.POST("/evaluate", s.evaluateSource)
	sources.POST("/evaluate/batch", s.evaluateBatch)
	sources.POST("/recommend", s.recommendSources)
	sources.POST("/download-result", s.recordDownloadResult)
	sources.POST("/resolve", s.resolveSource)

	search := protected.Group("/search")
	search.POST("", s.search)
	search.GET("/stats", s.searchStats)
	search.DELETE("/cache", s.purgeSearchCache)

	filters := protected.Group("/filters")
	filters.GET("/presets", s.listFilterPresets)
	filters.POST("/validate", s.validateFilter)

	prefsHandlers := preferences.NewHandlers(s.prefsService)
	prefsHandlers.RegisterRoutes(protected.Group("/preferences"))

	// WebSocket update stream.
	protected.GET("/ws", s.hub.HandleWebSocket)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":   "0.1.0",
		"startTime": startTime.Format(time.RFC3339),
		"clients":   s.hub.ClientCount(),
	})
}

var startTime = time.Now()
