package optimizer

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/riptide-app/riptide/internal/filter"
	"github.com/riptide-app/riptide/internal/source"
)

// SearchFunc is the underlying search operation the optimizer decorates.
type SearchFunc func(ctx context.Context, query string, f *filter.Advanced) ([]source.Metadata, error)

// Status classifies the outcome of an optimized search.
type Status string

const (
	StatusOK      Status = "ok"
	StatusEmpty   Status = "empty" // blank query short-circuit
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// Result is the outcome of one optimized search call. Failures are carried
// as a status plus message rather than an error return; timeouts and errors
// never populate the cache.
type Result struct {
	Status   Status            `json:"status"`
	Sources  []source.Metadata `json:"sources"`
	CacheHit bool              `json:"cacheHit"`
	Elapsed  time.Duration     `json:"elapsedMs"`
	Message  string            `json:"message,omitempty"`
}

// Config holds optimizer settings. Zero fields fall back to defaults.
type Config struct {
	CacheTTL         time.Duration // default: 10m
	MaxCacheSize     int           // default: 100
	SearchTimeout    time.Duration // default: 30s
	DebounceDelay    time.Duration // default: 300ms
	PrefetchEnabled  bool
	PrefetchMinChars int           // default: 3
	SlowQueryCutoff  time.Duration // default: 2s
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:         10 * time.Minute,
		MaxCacheSize:     100,
		SearchTimeout:    30 * time.Second,
		DebounceDelay:    300 * time.Millisecond,
		PrefetchEnabled:  true,
		PrefetchMinChars: 3,
		SlowQueryCutoff:  2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.CacheTTL <= 0 {
		c.CacheTTL = def.CacheTTL
	}
	if c.MaxCacheSize <= 0 {
		c.MaxCacheSize = def.MaxCacheSize
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = def.SearchTimeout
	}
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = def.DebounceDelay
	}
	if c.PrefetchMinChars <= 0 {
		c.PrefetchMinChars = def.PrefetchMinChars
	}
	if c.SlowQueryCutoff <= 0 {
		c.SlowQueryCutoff = def.SlowQueryCutoff
	}
	return c
}

// Optimizer decorates a SearchFunc with caching, prefetch, and telemetry.
type Optimizer struct {
	cfg       Config
	search    SearchFunc
	cache     *resultCache
	telemetry *Telemetry
	logger    zerolog.Logger
}

// New creates an optimizer around the given search function.
func New(cfg Config, search SearchFunc, logger zerolog.Logger) *Optimizer {
	cfg = cfg.withDefaults()
	return &Optimizer{
		cfg:       cfg,
		search:    search,
		cache:     newResultCache(cfg.MaxCacheSize, cfg.CacheTTL),
		telemetry: newTelemetry(cfg.SlowQueryCutoff),
		logger:    logger.With().Str("component", "optimizer").Logger(),
	}
}

// Search runs an optimized search: cache first, then the underlying search
// under the configured timeout. Successful results populate the cache;
// timeouts and failures do not.
func (o *Optimizer) Search(ctx context.Context, query string, f *filter.Advanced) Result {
	result := o.searchNoPrefetch(ctx, query, f)

	if o.cfg.PrefetchEnabled && result.Status == StatusOK && !result.CacheHit &&
		len([]rune(query)) >= o.cfg.PrefetchMinChars {
		go o.prefetchRelated(query, f)
	}
	return result
}

func (o *Optimizer) searchNoPrefetch(ctx context.Context, query string, f *filter.Advanced) Result {
	if isBlank(query) {
		return Result{Status: StatusEmpty, Sources: []source.Metadata{}}
	}

	key := Key(query, f)
	start := time.Now()

	if sources, ok := o.cache.Get(key); ok {
		o.telemetry.recordHit(query)
		return Result{
			Status:   StatusOK,
			Sources:  sources,
			CacheHit: true,
			Elapsed:  time.Since(start),
		}
	}

	searchCtx, cancel := context.WithTimeout(ctx, o.cfg.SearchTimeout)
	defer cancel()

	sources, err := o.search(searchCtx, query, f)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			o.telemetry.recordTimeout(query, elapsed)
			o.logger.Warn().Str("query", query).Dur("elapsed", elapsed).Msg("Search timed out")
			return Result{Status: StatusTimeout, Elapsed: elapsed, Message: "search timed out"}
		}
		o.telemetry.recordError(query, elapsed)
		o.logger.Error().Err(err).Str("query", query).Msg("Search failed")
		return Result{Status: StatusError, Elapsed: elapsed, Message: err.Error()}
	}

	o.cache.Add(key, sources)
	o.telemetry.recordMiss(query, elapsed)

	return Result{
		Status:  StatusOK,
		Sources: sources,
		Elapsed: elapsed,
	}
}

// SweepExpired removes expired cache entries. Wired to a periodic task.
func (o *Optimizer) SweepExpired() int {
	removed := o.cache.SweepExpired()
	if removed > 0 {
		o.logger.Debug().Int("removed", removed).Msg("Swept expired search cache entries")
	}
	return removed
}

// CacheLen returns the number of cached search results.
func (o *Optimizer) CacheLen() int {
	return o.cache.Len()
}

// PurgeCache drops all cached search results.
func (o *Optimizer) PurgeCache() {
	o.cache.Purge()
}

// Stats returns a snapshot of the optimizer's telemetry.
func (o *Optimizer) Stats() Stats {
	return o.telemetry.snapshot()
}

// Config returns the effective configuration.
func (o *Optimizer) Config() Config {
	return o.cfg
}

func isBlank(query string) bool {
	for _, r := range query {
		if r != ' ' && r != '\t' && r != '\n' {
			return false
		}
	}
	return true
}
