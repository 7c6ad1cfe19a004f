package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/riptide-app/riptide/internal/filter"
)

// searchRequest is the input for an optimized search.
type searchRequest struct {
	Query  string           `json:"query"`
	Filter *filter.Advanced `json:"filter,omitempty"`
}

// search runs a query through the optimizer's cache and timeout handling.
// POST /api/v1/search
func (s *Server) search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Filter != nil {
		if err := req.Filter.Validate(); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	result := s.optimizer.Search(c.Request().Context(), req.Query, req.Filter)
	return c.JSON(http.StatusOK, result)
}

// searchStats returns the optimizer telemetry snapshot.
// GET /api/v1/search/stats
func (s *Server) searchStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.optimizer.Stats())
}

// purgeSearchCache drops all cached search results.
// DELETE /api/v1/search/cache
func (s *Server) purgeSearchCache(c echo.Context) error {
	s.optimizer.PurgeCache()
	return c.NoContent(http.StatusNoContent)
}

// listFilterPresets returns the built-in filter presets.
// GET /api/v1/filters/presets
func (s *Server) listFilterPresets(c echo.Context) error {
	return c.JSON(http.StatusOK, filter.Presets())
}

// validateFilter checks a filter configuration without applying it.
// POST /api/v1/filters/validate
func (s *Server) validateFilter(c echo.Context) error {
	var f filter.Advanced
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filter")
	}
	if err := f.Validate(); err != nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"valid": false, "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"valid": true})
}
