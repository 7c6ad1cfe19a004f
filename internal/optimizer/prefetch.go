package optimizer

import (
	"context"

	"github.com/riptide-app/riptide/internal/filter"
)

// Suffix variants speculatively searched after a successful query, to warm
// the cache for the user's likely next refinement.
var prefetchSuffixes = []string{"movie", "tv show"}

// maxPrefetchQueries bounds the fan-out of one prefetch round.
const maxPrefetchQueries = 4

// prefetchRelated warms the cache with derived queries: common suffix
// variants plus successive prefixes of the original query. Best-effort only;
// failures and timeouts are discarded, and an already-cached key is never
// overwritten.
func (o *Optimizer) prefetchRelated(query string, f *filter.Advanced) {
	derived := o.derivedQueries(query)

	for _, q := range derived {
		key := Key(q, f)
		if _, cached := o.cache.Get(key); cached {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.SearchTimeout)
		sources, err := o.search(ctx, q, f)
		cancel()
		if err != nil {
			continue
		}
		if o.cache.AddIfAbsent(key, sources) {
			o.telemetry.recordPrefetch()
			o.logger.Debug().Str("query", q).Int("results", len(sources)).Msg("Prefetched related query")
		}
	}
}

// derivedQueries builds the bounded set of prefetch candidates.
func (o *Optimizer) derivedQueries(query string) []string {
	derived := make([]string, 0, maxPrefetchQueries)
	for _, suffix := range prefetchSuffixes {
		derived = append(derived, query+" "+suffix)
	}

	// Successive prefixes, longest first, down to the prefetch threshold.
	runes := []rune(query)
	for i := len(runes) - 1; i >= o.cfg.PrefetchMinChars && len(derived) < maxPrefetchQueries; i-- {
		derived = append(derived, string(runes[:i]))
	}
	return derived
}
