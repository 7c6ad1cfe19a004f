package optimizer

import (
	"sync"
	"time"
)

// maxSlowQueries caps the retained slow-query list.
const maxSlowQueries = 20

// SlowQuery records one search that exceeded the slow-query cutoff.
type SlowQuery struct {
	Query   string        `json:"query"`
	Elapsed time.Duration `json:"elapsedMs"`
	At      time.Time     `json:"at"`
}

// Stats is a read-only snapshot of the optimizer's counters. Diagnostic
// only; nothing in the engine consults these for caching or ranking.
type Stats struct {
	TotalSearches  int64         `json:"totalSearches"`
	CacheHits      int64         `json:"cacheHits"`
	CacheHitRate   float64       `json:"cacheHitRate"`
	Timeouts       int64         `json:"timeouts"`
	Errors         int64         `json:"errors"`
	Prefetches     int64         `json:"prefetches"`
	AverageLatency time.Duration `json:"averageLatencyMs"`
	SlowQueries    []SlowQuery   `json:"slowQueries,omitempty"`
}

// Telemetry accumulates per-query and aggregate counters in memory.
type Telemetry struct {
	mu           sync.Mutex
	slowCutoff   time.Duration
	total        int64
	hits         int64
	timeouts     int64
	errors       int64
	prefetches   int64
	totalLatency time.Duration
	latencyCount int64
	slow         []SlowQuery
}

func newTelemetry(slowCutoff time.Duration) *Telemetry {
	return &Telemetry{slowCutoff: slowCutoff}
}

func (t *Telemetry) recordHit(query string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	t.hits++
}

func (t *Telemetry) recordMiss(query string, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	t.recordLatencyLocked(query, elapsed)
}

func (t *Telemetry) recordTimeout(query string, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	t.timeouts++
	t.recordLatencyLocked(query, elapsed)
}

func (t *Telemetry) recordError(query string, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	t.errors++
	t.recordLatencyLocked(query, elapsed)
}

func (t *Telemetry) recordPrefetch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prefetches++
}

func (t *Telemetry) recordLatencyLocked(query string, elapsed time.Duration) {
	t.totalLatency += elapsed
	t.latencyCount++
	if t.slowCutoff > 0 && elapsed >= t.slowCutoff {
		t.slow = append(t.slow, SlowQuery{Query: query, Elapsed: elapsed, At: time.Now()})
		if len(t.slow) > maxSlowQueries {
			t.slow = t.slow[len(t.slow)-maxSlowQueries:]
		}
	}
}

func (t *Telemetry) snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Stats{
		TotalSearches: t.total,
		CacheHits:     t.hits,
		Timeouts:      t.timeouts,
		Errors:        t.errors,
		Prefetches:    t.prefetches,
	}
	if t.total > 0 {
		stats.CacheHitRate = float64(t.hits) / float64(t.total)
	}
	if t.latencyCount > 0 {
		stats.AverageLatency = t.totalLatency / time.Duration(t.latencyCount)
	}
	stats.SlowQueries = append([]SlowQuery(nil), t.slow...)
	return stats
}
