package preferences

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// maxImportBytes caps the accepted import payload size.
const maxImportBytes = 1 << 20

type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/filters", h.ListFilters)
	g.POST("/filters", h.SaveFilter)
	g.GET("/filters/last-used", h.LastUsedFilter)
	g.GET("/filters/:id", h.GetFilter)
	g.DELETE("/filters/:id", h.DeleteFilter)
	g.PUT("/filters/:id/default", h.SetDefaultFilter)
	g.PUT("/filters/:id/last-used", h.SetLastUsedFilter)
	g.GET("/values", h.ListValues)
	g.PUT("/values/:key", h.SetValue)
	g.GET("/favorites", h.ListFavorites)
	g.POST("/favorites", h.AddFavorite)
	g.DELETE("/favorites/:sourceId", h.RemoveFavorite)
	g.GET("/export", h.Export)
	g.POST("/import", h.Import)
	g.POST("/reset", h.Reset)
}

// ListFilters returns all saved filters.
// GET /api/v1/preferences/filters
func (h *Handlers) ListFilters(c echo.Context) error {
	filters, err := h.service.ListFilters(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, filters)
}

// SaveFilter creates or updates a saved filter.
// POST /api/v1/preferences/filters
func (h *Handlers) SaveFilter(c echo.Context) error {
	var sf SavedFilter
	if err := c.Bind(&sf); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	saved, err := h.service.SaveFilter(c.Request().Context(), sf)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, saved)
}

// GetFilter returns one saved filter.
// GET /api/v1/preferences/filters/:id
func (h *Handlers) GetFilter(c echo.Context) error {
	sf, err := h.service.GetFilter(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "filter not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sf)
}

// DeleteFilter removes a saved filter.
// DELETE /api/v1/preferences/filters/:id
func (h *Handlers) DeleteFilter(c echo.Context) error {
	err := h.service.DeleteFilter(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "filter not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// SetDefaultFilter marks a saved filter as the default.
// PUT /api/v1/preferences/filters/:id/default
func (h *Handlers) SetDefaultFilter(c echo.Context) error {
	err := h.service.SetDefaultFilter(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "filter not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// LastUsedFilter returns the most recently used saved filter.
// GET /api/v1/preferences/filters/last-used
func (h *Handlers) LastUsedFilter(c echo.Context) error {
	sf, err := h.service.LastUsedFilter(c.Request().Context())
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no last-used filter recorded")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sf)
}

// SetLastUsedFilter records a saved filter as the most recently used.
// PUT /api/v1/preferences/filters/:id/last-used
func (h *Handlers) SetLastUsedFilter(c echo.Context) error {
	err := h.service.SetLastUsedFilter(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "filter not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ListValues returns all raw preference key/value pairs.
// GET /api/v1/preferences/values
func (h *Handlers) ListValues(c echo.Context) error {
	prefs, err := h.service.Preferences(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, prefs)
}

type valueBody struct {
	Value string `json:"value"`
}

// SetValue upserts one raw preference value.
// PUT /api/v1/preferences/values/:key
func (h *Handlers) SetValue(c echo.Context) error {
	var body valueBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.SetPreference(c.Request().Context(), c.Param("key"), body.Value); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ListFavorites returns pinned sources.
// GET /api/v1/preferences/favorites
func (h *Handlers) ListFavorites(c echo.Context) error {
	favorites, err := h.service.ListFavorites(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, favorites)
}

// AddFavorite pins a source.
// POST /api/v1/preferences/favorites
func (h *Handlers) AddFavorite(c echo.Context) error {
	var fav Favorite
	if err := c.Bind(&fav); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.AddFavorite(c.Request().Context(), fav.SourceID, fav.Title); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveFavorite unpins a source.
// DELETE /api/v1/preferences/favorites/:sourceId
func (h *Handlers) RemoveFavorite(c echo.Context) error {
	if err := h.service.RemoveFavorite(c.Request().Context(), c.Param("sourceId")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Export streams the full preference snapshot as JSON.
// GET /api/v1/preferences/export
func (h *Handlers) Export(c echo.Context) error {
	data, err := h.service.Export(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="riptide-preferences.json"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

// Import replaces all preference state with an uploaded snapshot.
// POST /api/v1/preferences/import
func (h *Handlers) Import(c echo.Context) error {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImportBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	if err := h.service.Import(c.Request().Context(), data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Reset wipes all preference state.
// POST /api/v1/preferences/reset
func (h *Handlers) Reset(c echo.Context) error {
	if err := h.service.Reset(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
