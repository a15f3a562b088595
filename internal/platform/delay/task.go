package delay

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Task is a cancellable, restartable delayed call of fn.
// A fire that races with Cancel or a later Schedule is discarded: only the
// most recent scheduling can run fn.
type Task struct {
	clk clock.Clock
	fn  func()

	mu    sync.Mutex
	timer *clock.Timer
	gen   uint64
}

// NewTask returns an idle Task that calls fn on clk.
func NewTask(clk clock.Clock, fn func()) *Task {
	if clk == nil {
		clk = clock.New()
	}
	return &Task{clk: clk, fn: fn}
}

// Schedule (re)starts the task so fn runs once after d.
// Any pending run is cancelled first.
func (t *Task) Schedule(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	gen := t.gen
	t.timer = t.clk.AfterFunc(d, func() { t.fire(gen) })
}

// ScheduleIfIdle schedules the task only when nothing is pending.
// It reports whether a new run was scheduled.
func (t *Task) ScheduleIfIdle(d time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		return false
	}
	t.gen++
	gen := t.gen
	t.timer = t.clk.AfterFunc(d, func() { t.fire(gen) })
	return true
}

// Cancel drops a pending run, if any.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.gen++
}

// Pending reports whether a run is scheduled and has not fired yet.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

func (t *Task) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.mu.Unlock()

	t.fn()
}

// stopLocked stops the current timer. Caller must hold t.mu.
func (t *Task) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
