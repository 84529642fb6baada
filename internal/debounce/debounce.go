// Package debounce coalesces bursts of calls into at most one leading and one
// trailing execution per cooldown window.
package debounce

import (
	"sync"
	"time"
)

// State is the debouncer state.
type State int

const (
	// Idle: the next call executes immediately.
	Idle State = iota
	// Debouncing: a cooldown is running; calls are folded into one trailing execution.
	Debouncing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	default:
		return "unknown"
	}
}

// Debouncer runs fn on the first call after an idle period and at most once
// more at the end of the cooldown if further calls arrived meanwhile.
// A call during the cooldown restarts the window; only one timer is ever armed.
type Debouncer struct {
	mu       sync.Mutex
	cooldown time.Duration
	fn       func()

	state    State
	timer    *time.Timer
	gen      uint64 // identifies the armed timer; stale firings are ignored
	trailing bool
	closed   bool
}

// New creates a debouncer for fn.
func New(cooldown time.Duration, fn func()) *Debouncer {
	return &Debouncer{
		cooldown: cooldown,
		fn:       fn,
	}
}

// Call requests an execution. On the leading edge fn runs synchronously in
// the caller's goroutine; otherwise Call only schedules the trailing run.
func (d *Debouncer) Call() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	if d.state == Debouncing {
		d.trailing = true
		if d.timer != nil {
			d.armLocked()
		}
		d.mu.Unlock()
		return
	}

	d.state = Debouncing
	d.mu.Unlock()

	d.fn()

	d.mu.Lock()
	if !d.closed {
		d.armLocked()
	}
	d.mu.Unlock()
}

// State returns the current state.
func (d *Debouncer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Close cancels any pending timer. Later calls are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.trailing = false
	d.state = Idle
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// armLocked replaces the current timer with a fresh cooldown.
func (d *Debouncer) armLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.cooldown, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil

	if !d.trailing {
		d.state = Idle
		d.mu.Unlock()
		return
	}
	d.trailing = false
	d.mu.Unlock()

	d.fn()

	d.mu.Lock()
	if !d.closed {
		d.armLocked()
	}
	d.mu.Unlock()
}
