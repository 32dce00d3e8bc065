package router

import (
	"sync"
	"time"
)

const debounceDefaultDelay = 300 * time.Millisecond

// Debouncer coalesces rapid triggers into one deferred call. Each
// Trigger supersedes the previous pending one; Cancel drops whatever is
// pending and must be invoked on teardown so no callback can fire after
// its owner is gone.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewDebouncer creates a Debouncer with the given delay. A non-positive
// delay uses the default.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = debounceDefaultDelay
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn to run after the delay, replacing any pending
// callback. The firing closure checks the generation captured here so a
// timer that loses the race with Cancel or a newer Trigger is a no-op.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		stale := d.gen != gen
		d.mu.Unlock()
		if stale {
			return
		}
		fn()
	})
}

// Cancel drops the pending callback, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
