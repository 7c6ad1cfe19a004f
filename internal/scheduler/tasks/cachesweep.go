// Package tasks defines the background maintenance tasks registered with
// the scheduler at startup.
package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/riptide-app/riptide/internal/optimizer"
	"github.com/riptide-app/riptide/internal/scheduler"
)

// NewSearchCacheSweep sweeps expired entries out of the search result cache
// every interval. Expired entries are also dropped lazily on lookup; the
// sweep keeps the cache from holding dead entries for queries nobody repeats.
func NewSearchCacheSweep(opt *optimizer.Optimizer, interval time.Duration, logger zerolog.Logger) scheduler.TaskConfig {
	if interval <= 0 {
		interval = time.Minute
	}
	log := logger.With().Str("task", "search-cache-sweep").Logger()
	return scheduler.TaskConfig{
		ID:          "search-cache-sweep",
		Name:        "Search Cache Sweep",
		Description: "Removes expired search results from the query cache",
		Every:       interval,
		Func: func(ctx context.Context) error {
			removed := opt.SweepExpired()
			if removed > 0 {
				log.Debug().Int("removed", removed).Int("remaining", opt.CacheLen()).Msg("Swept expired search results")
			}
			return nil
		},
	}
}
