// Package api exposes the evaluation engine over HTTP.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	apimw "github.com/riptide-app/riptide/internal/api/middleware"
	"github.com/riptide-app/riptide/internal/api/ratelimit"
	"github.com/riptide-app/riptide/internal/auth"
	"github.com/riptide-app/riptide/internal/config"
	"github.com/riptide-app/riptide/internal/debrid"
	"github.com/riptide-app/riptide/internal/engine"
	"github.com/riptide-app/riptide/internal/health"
	"github.com/riptide-app/riptide/internal/optimizer"
	"github.com/riptide-app/riptide/internal/preferences"
	"github.com/riptide-app/riptide/internal/scoring"
	"github.com/riptide-app/riptide/internal/websocket"
)

// Server handles HTTP requests for the Riptide API.
type Server struct {
	echo   *echo.Echo
	db     *sql.DB
	hub    *websocket.Hub
	logger zerolog.Logger
	cfg    *config.Config

	engine        *engine.Engine
	optimizer     *optimizer.Optimizer
	healthService *health.Service
	scorer        *scoring.Scorer
	prefsService  *preferences.Service
	debridClient  *debrid.Client
	authService   *auth.Service
	authHandlers  *auth.Handlers
}

// Deps carries the services the server exposes. The search function behind
// the optimizer is injected by the caller so transports stay swappable.
type Deps struct {
	Engine        *engine.Engine
	Optimizer     *optimizer.Optimizer
	HealthService *health.Service
	Scorer        *scoring.Scorer
	Preferences   *preferences.Service
	Debrid        *debrid.Client
}

// NewServer creates a new API server instance.
func NewServer(db *sql.DB, hub *websocket.Hub, cfg *config.Config, deps Deps, logger zerolog.Logger) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	authService, err := auth.NewService(db, cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewAuthLimiter()
	limiter.StartCleanup(5 * time.Minute)

	s := &Server{
		echo:          e,
		db:            db,
		hub:           hub,
		logger:        logger,
		cfg:           cfg,
		engine:        deps.Engine,
		optimizer:     deps.Optimizer,
		healthService: deps.HealthService,
		scorer:        deps.Scorer,
		prefsService:  deps.Preferences,
		debridClient:  deps.Debrid,
		authService:   authService,
		authHandlers:  auth.NewHandlers(authService, limiter),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimw.SecurityHeaders())

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
