package store

import (
	"sync"
	"time"
)

// Debouncer runs the last function passed to Call once no new call has arrived for the delay.
type Debouncer struct {
	mu      sync.Mutex
	running sync.Mutex // held while a function runs
	delay   time.Duration
	timer   *time.Timer
	pending func()
}

// NewDebouncer returns a debouncer with delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Call schedules fn replacing any function still waiting.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.running.Lock()
	defer d.running.Unlock()
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Flush runs the waiting function now, if any. It returns once no function is running.
func (d *Debouncer) Flush() {
	d.running.Lock()
	defer d.running.Unlock()
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop discards the waiting function.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = nil
}
