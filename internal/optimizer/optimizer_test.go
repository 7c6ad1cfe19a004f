package optimizer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riptide-app/riptide/internal/filter"
	"github.com/riptide-app/riptide/internal/source"
	"github.com/riptide-app/riptide/internal/testutil"
)

// countingSearch is a SearchFunc stub that records calls and serves canned
// results per query.
type countingSearch struct {
	mu      sync.Mutex
	calls   int64
	queries []string
	err     error
}

func (c *countingSearch) fn(ctx context.Context, query string, f *filter.Advanced) ([]source.Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	atomic.AddInt64(&c.calls, 1)
	c.queries = append(c.queries, query)
	if c.err != nil {
		return nil, c.err
	}
	return []source.Metadata{{ID: "result-" + query, Title: query}}, nil
}

func (c *countingSearch) callCount() int64 {
	return atomic.LoadInt64(&c.calls)
}

func newTestOptimizer(t *testing.T, cfg Config, search SearchFunc) *Optimizer {
	t.Helper()
	return New(cfg, search, testutil.NopLogger())
}

func TestSearchCachesResults(t *testing.T) {
	stub := &countingSearch{}
	opt := newTestOptimizer(t, Config{}, stub.fn)

	first := opt.Search(context.Background(), "dune", nil)
	if first.Status != StatusOK || first.CacheHit {
		t.Fatalf("first search: status=%s cacheHit=%v", first.Status, first.CacheHit)
	}
	if len(first.Sources) != 1 {
		t.Fatalf("first search returned %d sources", len(first.Sources))
	}

	second := opt.Search(context.Background(), "dune", nil)
	if second.Status != StatusOK || !second.CacheHit {
		t.Fatalf("second search: status=%s cacheHit=%v", second.Status, second.CacheHit)
	}
	if got := stub.callCount(); got != 1 {
		t.Errorf("underlying search called %d times, want 1", got)
	}
}

func TestSearchKeyNormalization(t *testing.T) {
	stub := &countingSearch{}
	opt := newTestOptimizer(t, Config{}, stub.fn)

	opt.Search(context.Background(), "Dune", nil)
	hit := opt.Search(context.Background(), "  dune  ", nil)
	if !hit.CacheHit {
		t.Error("case and whitespace variants must share a cache entry")
	}

	// A different filter produces a different key.
	f := &filter.Advanced{Quality: filter.QualityGroup{MinResolution: source.Resolution1080p}}
	miss := opt.Search(context.Background(), "dune", f)
	if miss.CacheHit {
		t.Error("filtered search must not hit the unfiltered entry")
	}
}

func TestSearchBlankQuery(t *testing.T) {
	stub := &countingSearch{}
	opt := newTestOptimizer(t, Config{}, stub.fn)

	result := opt.Search(context.Background(), "   ", nil)
	if result.Status != StatusEmpty {
		t.Errorf("status = %s, want %s", result.Status, StatusEmpty)
	}
	if stub.callCount() != 0 {
		t.Error("blank query must not reach the search function")
	}
	if opt.CacheLen() != 0 {
		t.Error("blank query must not populate the cache")
	}
}

func TestSearchTimeoutNotCached(t *testing.T) {
	stub := &countingSearch{err: context.DeadlineExceeded}
	opt := newTestOptimizer(t, Config{}, stub.fn)

	result := opt.Search(context.Background(), "slow", nil)
	if result.Status != StatusTimeout {
		t.Fatalf("status = %s, want %s", result.Status, StatusTimeout)
	}
	if opt.CacheLen() != 0 {
		t.Error("timeout must not populate the cache")
	}

	// The next identical search retries instead of serving a cached failure.
	opt.Search(context.Background(), "slow", nil)
	if got := stub.callCount(); got != 2 {
		t.Errorf("search called %d times, want 2", got)
	}
}

func TestSearchErrorNotCached(t *testing.T) {
	stub := &countingSearch{err: errors.New("index unreachable")}
	opt := newTestOptimizer(t, Config{}, stub.fn)

	result := opt.Search(context.Background(), "dune", nil)
	if result.Status != StatusError {
		t.Fatalf("status = %s, want %s", result.Status, StatusError)
	}
	if result.Message != "index unreachable" {
		t.Errorf("message = %q", result.Message)
	}
	if opt.CacheLen() != 0 {
		t.Error("failure must not populate the cache")
	}
}

func TestCacheEvictsOldestInsertion(t *testing.T) {
	c := newResultCache(3, time.Minute)
	c.Add("a", nil)
	c.Add("b", nil)
	c.Add("c", nil)

	// Reading the oldest entry must not rescue it from eviction.
	c.Get("a")
	c.Add("d", nil)

	if _, ok := c.Get("a"); ok {
		t.Error("oldest insertion should have been evicted")
	}
	for _, key := range []string{"b", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("entry %q missing after eviction", key)
		}
	}
	if c.Len() != 3 {
		t.Errorf("len = %d, want 3", c.Len())
	}
}

func TestCacheOverwriteMovesToBack(t *testing.T) {
	c := newResultCache(2, time.Minute)
	c.Add("a", nil)
	c.Add("b", nil)
	c.Add("a", nil) // re-insert at the back
	c.Add("c", nil) // evicts b, now the oldest

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("re-inserted entry should survive")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newResultCache(10, time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Add("a", []source.Metadata{{ID: "x"}})
	if _, ok := c.Get("a"); !ok {
		t.Fatal("fresh entry must hit")
	}

	c.now = func() time.Time { return base.Add(time.Minute + time.Second) }
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry must miss")
	}
	if c.Len() != 0 {
		t.Error("expired read must drop the entry")
	}
}

func TestCacheAddIfAbsent(t *testing.T) {
	c := newResultCache(10, time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	original := []source.Metadata{{ID: "original"}}
	c.Add("a", original)

	if c.AddIfAbsent("a", []source.Metadata{{ID: "prefetched"}}) {
		t.Error("AddIfAbsent must not overwrite a fresh entry")
	}
	got, _ := c.Get("a")
	if got[0].ID != "original" {
		t.Errorf("entry = %q, want original preserved", got[0].ID)
	}

	// An expired entry may be replaced.
	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if !c.AddIfAbsent("a", []source.Metadata{{ID: "prefetched"}}) {
		t.Error("AddIfAbsent must replace an expired entry")
	}
}

func TestSweepExpired(t *testing.T) {
	c := newResultCache(10, time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Add("old1", nil)
	c.Add("old2", nil)

	c.now = func() time.Time { return base.Add(30 * time.Second) }
	c.Add("young", nil)

	c.now = func() time.Time { return base.Add(70 * time.Second) }
	if removed := c.SweepExpired(); removed != 2 {
		t.Errorf("swept %d entries, want 2", removed)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}

func TestPrefetchWarmsDerivedQueries(t *testing.T) {
	stub := &countingSearch{}
	opt := newTestOptimizer(t, Config{PrefetchEnabled: true}, stub.fn)

	// Run the prefetch round synchronously to avoid racing the goroutine
	// Search would spawn.
	result := opt.searchNoPrefetch(context.Background(), "dune", nil)
	if result.Status != StatusOK {
		t.Fatalf("status = %s", result.Status)
	}
	opt.prefetchRelated("dune", nil)

	if hit := opt.Search(context.Background(), "dune movie", nil); !hit.CacheHit {
		t.Error("suffix variant should have been prefetched")
	}
	if hit := opt.Search(context.Background(), "dun", nil); !hit.CacheHit {
		t.Error("prefix variant should have been prefetched")
	}

	stats := opt.Stats()
	if stats.Prefetches == 0 {
		t.Error("prefetches not recorded")
	}
}

func TestDerivedQueriesBounded(t *testing.T) {
	opt := newTestOptimizer(t, Config{}, (&countingSearch{}).fn)
	derived := opt.derivedQueries("interstellar")
	if len(derived) > maxPrefetchQueries {
		t.Errorf("derived %d queries, want at most %d", len(derived), maxPrefetchQueries)
	}
	if derived[0] != "interstellar movie" || derived[1] != "interstellar tv show" {
		t.Errorf("suffix variants = %v", derived[:2])
	}
}

func TestDebouncerCoalescesRapidInput(t *testing.T) {
	stub := &countingSearch{}
	opt := newTestOptimizer(t, Config{PrefetchEnabled: false}, stub.fn)

	results := make(chan Result, 1)
	d := opt.NewDebouncer(20*time.Millisecond, func(r Result) { results <- r })
	defer d.Stop()

	for _, q := range []string{"d", "du", "dun", "dune", "dune part two"} {
		d.Input(q, nil)
	}

	select {
	case r := <-results:
		if r.Status != StatusOK {
			t.Fatalf("status = %s", r.Status)
		}
		if len(r.Sources) != 1 || r.Sources[0].Title != "dune part two" {
			t.Errorf("debounced search ran for %v, want the final input", r.Sources)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debounced result never arrived")
	}

	if got := stub.callCount(); got != 1 {
		t.Errorf("search called %d times for 5 rapid inputs, want 1", got)
	}
}

func TestDebouncerBlankInput(t *testing.T) {
	stub := &countingSearch{}
	opt := newTestOptimizer(t, Config{}, stub.fn)

	results := make(chan Result, 1)
	d := opt.NewDebouncer(20*time.Millisecond, func(r Result) { results <- r })
	defer d.Stop()

	d.Input("", nil)
	select {
	case r := <-results:
		if r.Status != StatusEmpty {
			t.Errorf("status = %s, want %s", r.Status, StatusEmpty)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blank input must emit immediately")
	}
	if stub.callCount() != 0 {
		t.Error("blank input must not reach the search function")
	}
}

func TestDebouncerStop(t *testing.T) {
	stub := &countingSearch{}
	opt := newTestOptimizer(t, Config{}, stub.fn)

	d := opt.NewDebouncer(20*time.Millisecond, func(r Result) {
		t.Error("stopped debouncer must not emit")
	})
	d.Input("dune", nil)
	d.Stop()
	d.Input("dune again", nil)

	time.Sleep(100 * time.Millisecond)
	if stub.callCount() != 0 {
		t.Error("stopped debouncer must not search")
	}
}

func TestTelemetryCounters(t *testing.T) {
	stub := &countingSearch{}
	opt := newTestOptimizer(t, Config{PrefetchEnabled: false}, stub.fn)

	opt.Search(context.Background(), "dune", nil) // miss
	opt.Search(context.Background(), "dune", nil) // hit

	stub.err = errors.New("boom")
	opt.Search(context.Background(), "other", nil) // error
	stub.err = context.DeadlineExceeded
	opt.Search(context.Background(), "third", nil) // timeout

	stats := opt.Stats()
	if stats.TotalSearches != 4 {
		t.Errorf("total = %d, want 4", stats.TotalSearches)
	}
	if stats.CacheHits != 1 {
		t.Errorf("hits = %d, want 1", stats.CacheHits)
	}
	if stats.CacheHitRate != 0.25 {
		t.Errorf("hit rate = %v, want 0.25", stats.CacheHitRate)
	}
	if stats.Errors != 1 || stats.Timeouts != 1 {
		t.Errorf("errors/timeouts = %d/%d, want 1/1", stats.Errors, stats.Timeouts)
	}
}

func TestPurgeCache(t *testing.T) {
	stub := &countingSearch{}
	opt := newTestOptimizer(t, Config{PrefetchEnabled: false}, stub.fn)

	opt.Search(context.Background(), "dune", nil)
	if opt.CacheLen() != 1 {
		t.Fatalf("cache len = %d, want 1", opt.CacheLen())
	}
	opt.PurgeCache()
	if opt.CacheLen() != 0 {
		t.Errorf("cache len after purge = %d, want 0", opt.CacheLen())
	}
}
