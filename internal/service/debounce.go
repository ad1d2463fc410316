package service

import (
	"sync"
	"time"
)

// Debouncer calls fn with the last value passed to Trigger once no new value
// has arrived for interval. Bursts coalesce; they are never queued.
type Debouncer struct {
	interval time.Duration
	fn       func(string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	gen     uint64
	stopped bool
}

func NewDebouncer(interval time.Duration, fn func(string)) *Debouncer {
	return &Debouncer{interval: interval, fn: fn}
}

// Trigger records v and restarts the quiet period.
func (d *Debouncer) Trigger(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = v
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() { d.fire(gen) })
}

// fire runs fn unless a later Trigger or Cancel superseded generation gen.
// A timer whose Stop lost the race still reaches here and is dropped by the gen check.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.stopped {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.timer = nil
	d.mu.Unlock()

	d.fn(v)
}

// Cancel drops the pending value, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Stop cancels and makes every later Trigger a no-op.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

// Pending reports whether a call is scheduled and not yet fired.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) cancelLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
