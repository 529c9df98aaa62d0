// Package rate provides the fixed-window counters that gate classifier
// calls and desktop notification volume.
package rate

import (
	"sync"
	"time"
)

// Window counts events in a rolling fixed window. The clock is
// injectable so tests can drive it without real timers.
type Window struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	count   int
	started time.Time

	// Clock returns the current time; defaults to time.Now.
	Clock func() time.Time
}

// NewWindow returns a counter allowing max events per window.
func NewWindow(max int, window time.Duration) *Window {
	return &Window{
		max:    max,
		window: window,
		Clock:  time.Now,
	}
}

// Allow consumes one slot if the current window has capacity and
// reports whether the caller may proceed.
func (w *Window) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.Clock()
	if now.Sub(w.started) >= w.window {
		w.started = now
		w.count = 0
	}
	if w.count >= w.max {
		return false
	}
	w.count++
	return true
}

// Remaining reports how many slots are left in the current window.
func (w *Window) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.Clock().Sub(w.started) >= w.window {
		return w.max
	}
	if w.count >= w.max {
		return 0
	}
	return w.max - w.count
}

// Reset clears the current window.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.count = 0
	w.started = w.Clock()
}
