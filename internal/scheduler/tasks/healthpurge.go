package tasks

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/riptide-app/riptide/internal/health"
	"github.com/riptide-app/riptide/internal/scheduler"
)

// NewHealthCachePurge clears the health evaluation cache nightly so that
// long-lived sources get a full re-evaluation instead of rolling refreshes.
func NewHealthCachePurge(svc *health.Service, logger zerolog.Logger) scheduler.TaskConfig {
	log := logger.With().Str("task", "health-cache-purge").Logger()
	return scheduler.TaskConfig{
		ID:          "health-cache-purge",
		Name:        "Health Cache Purge",
		Description: "Clears cached health evaluations for a full recompute",
		Cron:        "0 4 * * *",
		Func: func(ctx context.Context) error {
			size := svc.CacheLen()
			svc.Purge()
			log.Info().Int("purged", size).Msg("Purged health cache")
			return nil
		},
	}
}
