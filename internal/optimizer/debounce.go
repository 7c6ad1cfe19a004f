package optimizer

import (
	"context"
	"sync"
	"time"

	"github.com/riptide-app/riptide/internal/filter"
)

// Debouncer coalesces rapid search inputs so that only the most recent
// input after a quiet period triggers an underlying search. Independent UI
// fields use independent Debouncer instances.
type Debouncer struct {
	optimizer *Optimizer
	delay     time.Duration
	emit      func(Result)

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debounce stream over the optimizer. Results are
// delivered to emit; the zero delay falls back to the optimizer's configured
// debounce delay.
func (o *Optimizer) NewDebouncer(delay time.Duration, emit func(Result)) *Debouncer {
	if delay <= 0 {
		delay = o.cfg.DebounceDelay
	}
	return &Debouncer{
		optimizer: o,
		delay:     delay,
		emit:      emit,
	}
}

// Input submits a new search input. Any pending trigger is cancelled and the
// quiet window restarts. Blank queries short-circuit to an immediate empty
// result without touching the cache or the search function.
func (d *Debouncer) Input(query string, f *filter.Advanced) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	if isBlank(query) {
		go d.emit(Result{Status: StatusEmpty})
		return
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if stopped {
			return
		}
		d.emit(d.optimizer.Search(context.Background(), query, f))
	})
}

// Stop cancels any pending trigger and makes further inputs no-ops.
// In-flight searches are not interrupted; their results are discarded.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
