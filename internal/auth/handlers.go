package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/riptide-app/riptide/internal/api/ratelimit"
)

// Handlers exposes login and auth-status endpoints.
type Handlers struct {
	service *Service
	limiter *ratelimit.AuthLimiter
}

func NewHandlers(service *Service, limiter *ratelimit.AuthLimiter) *Handlers {
	return &Handlers{service: service, limiter: limiter}
}

func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("/setup", h.Setup)
	g.POST("/login", h.Login, h.limiter.Middleware())
	g.GET("/status", h.Status)
}

type credentials struct {
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Setup sets the instance password. Only allowed while none is set;
// changing an existing password requires an authenticated request.
func (h *Handlers) Setup(c echo.Context) error {
	if h.service.IsPasswordSet() {
		return echo.NewHTTPError(http.StatusConflict, "password already configured")
	}

	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.SetPassword(creds.Password); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Login validates the password and returns a bearer token.
func (h *Handlers) Login(c echo.Context) error {
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if h.limiter.IsAccountLocked("admin") {
		retryAfter := h.limiter.GetLockoutRemaining("admin")
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		return echo.NewHTTPError(http.StatusTooManyRequests, "account temporarily locked")
	}

	if err := h.service.ValidatePassword(creds.Password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.limiter.RecordFailedAttempt("admin")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		if errors.Is(err, ErrNoPasswordSet) {
			return echo.NewHTTPError(http.StatusConflict, "no password configured")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.limiter.RecordSuccessfulLogin("admin")

	token, err := h.service.GenerateToken()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate token")
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// Status reports whether auth is configured.
func (h *Handlers) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"requiresAuth": h.service.IsPasswordSet(),
	})
}

// Middleware returns an echo middleware that requires a valid bearer
// token when a password is configured. Unconfigured instances pass
// everything through so first-run setup is possible.
func (h *Handlers) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !h.service.IsPasswordSet() {
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			if _, err := h.service.ValidateToken(token); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			return next(c)
		}
	}
}
