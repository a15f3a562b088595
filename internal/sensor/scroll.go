package sensor

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"live-orchestrator/internal/platform/delay"
)

// Direction of the last scroll movement.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

const (
	// DefaultVisibilityThreshold is the main-surface visibility ratio at or
	// above which the main surface counts as in view.
	DefaultVisibilityThreshold = 0.3
	// DefaultFrameInterval approximates one animation frame.
	DefaultFrameInterval = 16 * time.Millisecond

	scrollListener = "scroll-tracker"
)

// Sample is one raw scroll observation from the page. MainTop is the main
// surface's top edge relative to the viewport top.
type Sample struct {
	Offset         float64 `json:"offset"`
	MainTop        float64 `json:"main_top"`
	MainHeight     float64 `json:"main_height"`
	ViewportHeight float64 `json:"viewport_height"`
}

// Reading is the evaluated result of a sample.
type Reading struct {
	Direction Direction
	Visible   bool
	Offset    float64
	Ratio     float64
}

// TrackerConfig tunes the tracker. Zero values take the defaults.
type TrackerConfig struct {
	VisibilityThreshold float64
	FrameInterval       time.Duration
}

func (c TrackerConfig) withDefaults() TrackerConfig {
	if c.VisibilityThreshold <= 0 || c.VisibilityThreshold > 1 {
		c.VisibilityThreshold = DefaultVisibilityThreshold
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = DefaultFrameInterval
	}
	return c
}

// VisibilityRatio returns the fraction of the main surface's height that
// overlaps the viewport, clamped to [0,1].
func VisibilityRatio(s Sample) float64 {
	if s.MainHeight <= 0 || s.ViewportHeight <= 0 {
		return 0
	}
	top := s.MainTop
	bottom := s.MainTop + s.MainHeight
	if top < 0 {
		top = 0
	}
	if bottom > s.ViewportHeight {
		bottom = s.ViewportHeight
	}
	overlap := bottom - top
	if overlap <= 0 {
		return 0
	}
	ratio := overlap / s.MainHeight
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Evaluate turns a sample into a reading relative to the previous offset.
func Evaluate(prevOffset float64, s Sample, threshold float64) Reading {
	dir := DirectionUp
	if s.Offset > prevOffset {
		dir = DirectionDown
	}
	ratio := VisibilityRatio(s)
	return Reading{
		Direction: dir,
		Visible:   ratio >= threshold,
		Offset:    s.Offset,
		Ratio:     ratio,
	}
}

// Tracker samples scroll position at most once per frame and emits readings
// while attached. Within a frame the newest sample wins, so the last sample
// of a burst is always evaluated.
type Tracker struct {
	cfg  TrackerConfig
	reg  *Registry
	emit func(Reading)

	mu      sync.Mutex
	sub     *Subscription
	pending *Sample
	last    float64
	frame   *delay.Task
}

// NewTracker returns a detached tracker. emit is called from the frame
// goroutine, never under the tracker's lock.
func NewTracker(reg *Registry, clk clock.Clock, cfg TrackerConfig, emit func(Reading)) *Tracker {
	t := &Tracker{
		cfg:  cfg.withDefaults(),
		reg:  reg,
		emit: emit,
	}
	t.frame = delay.NewTask(clk, t.flush)
	return t
}

// Attach starts listening. Calling it while attached is a no-op.
func (t *Tracker) Attach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sub == nil {
		t.sub = t.reg.Subscribe(scrollListener)
	}
}

// Detach stops listening, drops any pending sample and cancels the frame.
func (t *Tracker) Detach() {
	t.mu.Lock()
	t.sub.Cancel()
	t.sub = nil
	t.pending = nil
	t.last = 0
	t.mu.Unlock()

	t.frame.Cancel()
}

// Attached reports whether the tracker is listening.
func (t *Tracker) Attached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sub != nil
}

// Observe queues a sample for the next frame. It reports false when the
// tracker is detached and the sample was dropped.
func (t *Tracker) Observe(s Sample) bool {
	t.mu.Lock()
	if t.sub == nil {
		t.mu.Unlock()
		return false
	}
	t.pending = &s
	t.mu.Unlock()

	t.frame.ScheduleIfIdle(t.cfg.FrameInterval)
	return true
}

// Threshold returns the effective visibility threshold.
func (t *Tracker) Threshold() float64 { return t.cfg.VisibilityThreshold }

func (t *Tracker) flush() {
	t.mu.Lock()
	if t.sub == nil || t.pending == nil {
		t.mu.Unlock()
		return
	}
	r := Evaluate(t.last, *t.pending, t.cfg.VisibilityThreshold)
	t.last = r.Offset
	t.pending = nil
	t.mu.Unlock()

	if t.emit != nil {
		t.emit(r)
	}
}
