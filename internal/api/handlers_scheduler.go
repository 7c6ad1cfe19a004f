package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/riptide-app/riptide/internal/scheduler"
)

// RegisterScheduler exposes the scheduler's task endpoints. Called after
// the scheduler is built since tasks reference services wired elsewhere.
func (s *Server) RegisterScheduler(sched *scheduler.Scheduler) {
	g := s.echo.Group("/api/v1/scheduler", s.authHandlers.Middleware())

	g.GET("/tasks", func(c echo.Context) error {
		return c.JSON(http.StatusOK, sched.ListTasks())
	})

	g.GET("/tasks/:id", func(c echo.Context) error {
		task, err := sched.GetTask(c.Param("id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return c.JSON(http.StatusOK, task)
	})

	g.POST("/tasks/:id/run", func(c echo.Context) error {
		id := c.Param("id")
		if err := sched.RunNow(id); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusAccepted, map[string]string{
			"message": "task started",
			"taskId":  id,
		})
	})
}
