package surface

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"live-orchestrator/internal/media"
	"live-orchestrator/internal/platform/delay"
)

// Kind identifies one of the two playback surfaces.
type Kind string

const (
	KindMain Kind = "main"
	KindMini Kind = "mini"
)

// ParseKind maps a wire value to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindMain, KindMini:
		return Kind(s), true
	}
	return "", false
}

// Status is the surface's local loading sub-state.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusLoading     Status = "loading"
	StatusReady       Status = "ready"
	StatusUnavailable Status = "unavailable"
)

const (
	DefaultLoadTimeout  = 8 * time.Second
	DefaultCaptionHide  = 3 * time.Second
	DefaultControlsHide = 3 * time.Second
)

// ErrFullscreenUnsupported is returned by a Fullscreener on platforms
// without a fullscreen API.
var ErrFullscreenUnsupported = errors.New("fullscreen not supported")

// Fullscreener is the platform fullscreen capability.
type Fullscreener interface {
	RequestFullscreen(kind Kind) error
}

// Platform is a Fullscreener that delegates to the client when the
// deployment's target platforms support fullscreen.
type Platform struct {
	Supported bool
}

// RequestFullscreen implements Fullscreener.
func (p Platform) RequestFullscreen(Kind) error {
	if !p.Supported {
		return ErrFullscreenUnsupported
	}
	return nil
}

// Config holds the surface timer durations. Zero values take the defaults.
type Config struct {
	LoadTimeout  time.Duration
	CaptionHide  time.Duration
	ControlsHide time.Duration
}

func (c Config) withDefaults() Config {
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = DefaultLoadTimeout
	}
	if c.CaptionHide <= 0 {
		c.CaptionHide = DefaultCaptionHide
	}
	if c.ControlsHide <= 0 {
		c.ControlsHide = DefaultControlsHide
	}
	return c
}

// Props is what the session hands a surface on every render. The surface
// only reads them; it never reassigns its asset.
type Props struct {
	Asset         media.Asset
	Muted         bool
	Paused        bool
	AutoplayArmed bool
}

// Surface renders one asset through the embedded engine and owns the local
// mute display, caption, controls and loading sub-state.
type Surface struct {
	kind     Kind
	cfg      Config
	log      *slog.Logger
	fs       Fullscreener
	onChange func()

	mu              sync.Mutex
	props           Props
	status          Status
	lastErr         string
	captionsOn      bool
	captionVisible  bool
	controlsVisible bool
	fullscreen      bool
	closed          bool

	loadTimer     *delay.Task
	captionTimer  *delay.Task
	controlsTimer *delay.Task
}

// New returns an idle surface. onChange is called, outside the surface's
// lock, whenever a timer changes what the surface displays.
func New(kind Kind, clk clock.Clock, cfg Config, log *slog.Logger, fs Fullscreener, onChange func()) *Surface {
	if fs == nil {
		fs = Platform{}
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Surface{
		kind:     kind,
		cfg:      cfg.withDefaults(),
		log:      log.With(slog.String("surface", string(kind))),
		fs:       fs,
		onChange: onChange,
		status:   StatusIdle,
	}
	s.loadTimer = delay.NewTask(clk, s.loadTimedOut)
	s.captionTimer = delay.NewTask(clk, s.hideCaption)
	s.controlsTimer = delay.NewTask(clk, s.hideControls)
	return s
}

// Kind returns which surface this is.
func (s *Surface) Kind() Kind { return s.kind }

// Render applies new props. A different asset restarts loading; a nil asset
// empties the surface. The mini surface panics on a non-live asset: callers
// must only ever hand it the session's active live asset.
func (s *Surface) Render(p Props) {
	if s.kind == KindMini && p.Asset != nil && !p.Asset.IsLive() {
		panic(fmt.Sprintf("surface: mini surface given non-live asset %q", media.IDOf(p.Asset)))
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	changed := !media.SameAsset(s.props.Asset, p.Asset)
	s.props = p

	switch {
	case p.Asset == nil:
		s.resetLocked()
	case changed:
		s.status = StatusLoading
		s.lastErr = ""
		s.fullscreen = false
		s.controlsVisible = true
	}
	s.mu.Unlock()

	switch {
	case p.Asset == nil:
		s.loadTimer.Cancel()
		s.captionTimer.Cancel()
		s.controlsTimer.Cancel()
	case changed:
		s.loadTimer.Schedule(s.cfg.LoadTimeout)
		s.controlsTimer.Schedule(s.cfg.ControlsHide)
	}
}

// OnReady is the engine's ready callback.
func (s *Surface) OnReady() {
	s.mu.Lock()
	if s.props.Asset == nil || s.status != StatusLoading {
		s.mu.Unlock()
		return
	}
	s.status = StatusReady
	s.mu.Unlock()

	s.loadTimer.Cancel()
}

// OnError is the engine's error callback. The surface shows a retry
// affordance; session state is untouched.
func (s *Surface) OnError(err error) {
	s.mu.Lock()
	if s.props.Asset == nil {
		s.mu.Unlock()
		return
	}
	s.status = StatusUnavailable
	if err != nil {
		s.lastErr = err.Error()
	}
	s.mu.Unlock()

	s.loadTimer.Cancel()
	s.log.Info("playback unavailable",
		slog.String("asset_id", string(media.IDOf(s.Asset()))),
		slog.String("error", s.lastError()))
}

// Retry returns an unavailable surface to loading.
func (s *Surface) Retry() bool {
	s.mu.Lock()
	if s.props.Asset == nil || s.status != StatusUnavailable {
		s.mu.Unlock()
		return false
	}
	s.status = StatusLoading
	s.lastErr = ""
	s.mu.Unlock()

	s.loadTimer.Schedule(s.cfg.LoadTimeout)
	return true
}

// ToggleMute returns the mute value the user asked for: the inverse of what
// the surface currently displays. The caller routes it to the session, which
// decides and re-renders.
func (s *Surface) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.props.Muted
}

// RequestFullscreen asks the platform for fullscreen. Failures are ignored.
func (s *Surface) RequestFullscreen() {
	s.mu.Lock()
	if s.props.Asset == nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.fs.RequestFullscreen(s.kind); err != nil {
		s.log.Debug("fullscreen request ignored", slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	s.fullscreen = true
	s.mu.Unlock()
}

// ToggleCaptions flips captions; turning them on shows the cue and starts
// its auto-hide timer.
func (s *Surface) ToggleCaptions() {
	s.mu.Lock()
	s.captionsOn = !s.captionsOn
	s.captionVisible = s.captionsOn
	on := s.captionsOn
	s.mu.Unlock()

	if on {
		s.captionTimer.Schedule(s.cfg.CaptionHide)
	} else {
		s.captionTimer.Cancel()
	}
}

// Activity reveals controls (and captions, when on) and restarts their
// auto-hide timers.
func (s *Surface) Activity() {
	s.mu.Lock()
	if s.props.Asset == nil {
		s.mu.Unlock()
		return
	}
	s.controlsVisible = true
	captions := s.captionsOn
	if captions {
		s.captionVisible = true
	}
	s.mu.Unlock()

	s.controlsTimer.Schedule(s.cfg.ControlsHide)
	if captions {
		s.captionTimer.Schedule(s.cfg.CaptionHide)
	}
}

// Asset returns the currently assigned asset.
func (s *Surface) Asset() media.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props.Asset
}

// Status returns the loading sub-state.
func (s *Surface) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Close cancels all timers; the surface ignores further renders.
func (s *Surface) Close() {
	s.mu.Lock()
	s.closed = true
	s.resetLocked()
	s.props = Props{}
	s.mu.Unlock()

	s.loadTimer.Cancel()
	s.captionTimer.Cancel()
	s.controlsTimer.Cancel()
}

func (s *Surface) lastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// resetLocked clears per-asset sub-state. Caller must hold s.mu.
func (s *Surface) resetLocked() {
	s.status = StatusIdle
	s.lastErr = ""
	s.fullscreen = false
	s.controlsVisible = false
	s.captionVisible = false
}

func (s *Surface) loadTimedOut() {
	s.mu.Lock()
	if s.status != StatusLoading {
		s.mu.Unlock()
		return
	}
	// Embedded players do not reliably signal readiness; stop the spinner.
	s.status = StatusReady
	s.mu.Unlock()

	s.log.Debug("load timeout elapsed, clearing spinner")
	s.changed()
}

func (s *Surface) hideCaption() {
	s.mu.Lock()
	if !s.captionVisible {
		s.mu.Unlock()
		return
	}
	s.captionVisible = false
	s.mu.Unlock()
	s.changed()
}

func (s *Surface) hideControls() {
	s.mu.Lock()
	if !s.controlsVisible {
		s.mu.Unlock()
		return
	}
	s.controlsVisible = false
	s.mu.Unlock()
	s.changed()
}

func (s *Surface) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
