package tasks

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/riptide-app/riptide/internal/optimizer"
	"github.com/riptide-app/riptide/internal/scheduler"
)

// NewTelemetryReport periodically logs search telemetry so hit rates and
// slow queries show up in the logs without anyone polling the stats endpoint.
func NewTelemetryReport(opt *optimizer.Optimizer, logger zerolog.Logger) scheduler.TaskConfig {
	log := logger.With().Str("task", "telemetry-report").Logger()
	return scheduler.TaskConfig{
		ID:          "telemetry-report",
		Name:        "Search Telemetry Report",
		Description: "Logs search cache hit rate and latency figures",
		Cron:        "0 * * * *",
		Func: func(ctx context.Context) error {
			stats := opt.Stats()
			if stats.TotalSearches == 0 {
				return nil
			}
			log.Info().
				Int64("searches", stats.TotalSearches).
				Float64("hitRate", stats.CacheHitRate).
				Dur("avgLatency", stats.AverageLatency).
				Int64("timeouts", stats.Timeouts).
				Int("slowQueries", len(stats.SlowQueries)).
				Msg("Search telemetry")
			return nil
		},
	}
}
