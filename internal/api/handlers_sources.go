package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/riptide-app/riptide/internal/filter"
	"github.com/riptide-app/riptide/internal/scoring"
	"github.com/riptide-app/riptide/internal/source"
)

// maxBatchSources caps a single batch request.
const maxBatchSources = 500

// evaluateSource runs the full evaluation pipeline for one source.
// POST /api/v1/sources/evaluate
func (s *Server) evaluateSource(c echo.Context) error {
	var m source.Metadata
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid source metadata")
	}
	if m.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "source id is required")
	}

	processed := s.engine.ProcessSource(c.Request().Context(), &m)
	return c.JSON(http.StatusOK, processed)
}

// evaluateBatch evaluates many sources with bounded concurrency.
// POST /api/v1/sources/evaluate/batch
func (s *Server) evaluateBatch(c echo.Context) error {
	var body struct {
		Sources []source.Metadata `json:"sources"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(body.Sources) > maxBatchSources {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too many sources in one batch")
	}

	results := s.engine.BatchProcessSources(c.Request().Context(), body.Sources)
	return c.JSON(http.StatusOK, results)
}

// recommendRequest is the input for ranked recommendations.
type recommendRequest struct {
	Sources     []source.Metadata    `json:"sources"`
	Filter      *filter.Advanced     `json:"filter,omitempty"`
	Profile     *scoring.UserProfile `json:"profile,omitempty"`
	Preferences scoring.Preferences  `json:"preferences"`
}

// recommendSources filters, evaluates, and ranks candidate sources.
// POST /api/v1/sources/recommend
func (s *Server) recommendSources(c echo.Context) error {
	var req recommendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Sources) > maxBatchSources {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too many sources in one batch")
	}
	if req.Filter != nil {
		if err := req.Filter.Validate(); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	recs := s.engine.Recommend(c.Request().Context(), req.Sources, req.Filter, req.Profile, req.Preferences)
	return c.JSON(http.StatusOK, recs)
}

// downloadResultRequest reports a finished download back to the engine.
type downloadResultRequest struct {
	ProviderID string           `json:"providerId"`
	DurationMs int64            `json:"durationMs"`
	Success    bool             `json:"success"`
	Source     *source.Metadata `json:"source,omitempty"`
}

// recordDownloadResult feeds a real download outcome into provider history.
// POST /api/v1/sources/download-result
func (s *Server) recordDownloadResult(c echo.Context) error {
	var req downloadResultRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ProviderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "provider id is required")
	}

	s.engine.RecordDownloadResult(req.ProviderID, time.Duration(req.DurationMs)*time.Millisecond, req.Success, req.Source)
	return c.NoContent(http.StatusNoContent)
}

// resolveRequest asks the debrid service for a direct link.
type resolveRequest struct {
	SourceID string `json:"sourceId"`
	Link     string `json:"link"`
}

// resolveSource unrestricts a source into a direct download link.
// POST /api/v1/sources/resolve
func (s *Server) resolveSource(c echo.Context) error {
	if s.debridClient == nil || !s.debridClient.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "debrid service not configured")
	}

	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Link == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "link is required")
	}

	resolved, err := s.debridClient.Resolve(c.Request().Context(), req.SourceID, req.Link)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, resolved)
}

// getAnalytics returns the engine diagnostics snapshot.
// GET /api/v1/analytics
func (s *Server) getAnalytics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Analytics())
}
