package orchestrator

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"

	"live-orchestrator/internal/catalog"
	"live-orchestrator/internal/history"
	"live-orchestrator/internal/media"
	"live-orchestrator/internal/sensor"
	"live-orchestrator/internal/surface"
)

var (
	// ErrUnknownAsset is returned when a selection names an asset that is
	// not in the session's catalog.
	ErrUnknownAsset = errors.New("asset not in catalog")

	// ErrUnknownSurface is returned for surface names other than main/mini.
	ErrUnknownSurface = errors.New("unknown surface")

	// ErrLiveProgress is returned when progress is reported for a live asset.
	ErrLiveProgress = errors.New("live assets have no watch progress")

	// ErrSessionClosed is returned by operations on a torn-down session.
	ErrSessionClosed = errors.New("session closed")
)

const watcherListener = "snapshot-watcher"

// SessionOptions configures a Session. Zero values take defaults.
type SessionOptions struct {
	ID       string
	Clock    clock.Clock
	Log      *slog.Logger
	Config   Config
	Tracker  sensor.TrackerConfig
	Surface  surface.Config
	Screen   surface.Fullscreener
	Reporter *history.Reporter

	// OnEvent is called after every dispatched event with whether it
	// changed the state.
	OnEvent func(name string, changed bool)
}

// Session is one browser tab's playback orchestrator. It is the only writer
// of its State: every change goes through Dispatch, which runs the transition
// to completion before the next event is processed.
type Session struct {
	id       string
	cfg      Config
	log      *slog.Logger
	reporter *history.Reporter
	onEvent  func(string, bool)

	reg     *sensor.Registry
	gate    *sensor.Gate
	tracker *sensor.Tracker
	main    *surface.Surface
	mini    *surface.Surface

	mu           sync.Mutex
	state        State
	userID       string
	assets       []media.Asset
	progress     map[media.AssetID]float64
	version      uint64
	scrollToMain uint64
	closed       bool
	watchers     map[*sensor.Subscription]chan Snapshot
}

// NewSession builds an idle session. Call Start to load a catalog.
func NewSession(opts SessionOptions) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Config == (Config{}) {
		opts.Config = DefaultConfig()
	}

	s := &Session{
		id:       opts.ID,
		cfg:      opts.Config.withDefaults(),
		log:      opts.Log.With(slog.String("session_id", opts.ID)),
		reporter: opts.Reporter,
		onEvent:  opts.OnEvent,
		reg:      sensor.NewRegistry(),
		progress: make(map[media.AssetID]float64),
		watchers: make(map[*sensor.Subscription]chan Snapshot),
	}

	s.gate = sensor.NewGate(s.reg, func() { s.Dispatch(Unlock{}) })
	s.tracker = sensor.NewTracker(s.reg, opts.Clock, opts.Tracker, func(r sensor.Reading) {
		s.Dispatch(Scroll{Direction: r.Direction, Visible: r.Visible, Offset: r.Offset})
	})
	s.main = surface.New(surface.KindMain, opts.Clock, opts.Surface, s.log, opts.Screen, s.surfaceChanged)
	s.mini = surface.New(surface.KindMini, opts.Clock, opts.Surface, s.log, opts.Screen, s.surfaceChanged)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Start begins a session for userID ("" for an anonymous viewer) over the
// given catalog. Authenticated sessions attach the scroll tracker and load
// watch progress in the background.
func (s *Session) Start(userID string, assets []media.Asset) Snapshot {
	s.mu.Lock()
	s.userID = userID
	s.assets = append([]media.Asset(nil), assets...)
	s.mu.Unlock()

	if userID != "" {
		s.tracker.Attach()
		s.reporter.LoadProgress(userID, s.mergeProgress)
	}
	return s.Dispatch(Init{Catalog: assets})
}

// Dispatch applies ev, re-renders both surfaces and publishes the result.
func (s *Session) Dispatch(ev Event) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.snapshotLocked()
	}

	prev := s.state
	next, effects := Apply(prev, ev, s.cfg)
	s.state = next
	changed := next != prev

	for _, eff := range effects {
		if eff == EffectScrollMainIntoView {
			s.scrollToMain++
		}
	}
	if next.InteractionUnlocked && !prev.InteractionUnlocked {
		s.gate.Latch()
	}
	if err := Check(next); err != nil {
		s.log.Error("transition broke an invariant",
			slog.String("event", ev.Name()),
			slog.String("error", err.Error()))
	}

	if changed {
		s.log.Debug("transition",
			slog.String("event", ev.Name()),
			slog.String("from", string(prev.Mode())),
			slog.String("to", string(next.Mode())))
	}

	s.renderLocked()
	if s.onEvent != nil {
		s.onEvent(ev.Name(), changed)
	}
	return s.publishLocked()
}

// Gesture feeds a document-level input to the interaction gate.
func (s *Session) Gesture(g sensor.Gesture) {
	s.gate.Observe(g)
}

// ScrollSample feeds a raw scroll sample. A scroll is also a gesture.
func (s *Session) ScrollSample(sample sensor.Sample) {
	s.gate.Observe(sensor.GestureScroll)
	s.tracker.Observe(sample)
}

// Select looks id up in the session catalog, reports the selection to the
// history collaborator and dispatches it.
func (s *Session) Select(id media.AssetID) (Snapshot, error) {
	s.mu.Lock()
	asset, ok := catalog.Find(s.assets, id)
	userID := s.userID
	s.mu.Unlock()

	if !ok {
		return s.Snapshot(), ErrUnknownAsset
	}
	s.reporter.Selected(userID, id)
	return s.Dispatch(Select{Asset: asset}), nil
}

// ToggleMute lets a surface originate a mute toggle. The surface proposes
// the inverse of what it displays; the session decides.
func (s *Session) ToggleMute(kind surface.Kind) (Snapshot, error) {
	sf, err := s.surface(kind)
	if err != nil {
		return s.Snapshot(), err
	}
	if sf.ToggleMute() {
		return s.Dispatch(SoundOff{}), nil
	}
	return s.Dispatch(SoundOn{}), nil
}

// SurfaceReady forwards the engine's ready callback.
func (s *Session) SurfaceReady(kind surface.Kind) (Snapshot, error) {
	return s.onSurface(kind, (*surface.Surface).OnReady)
}

// SurfaceError forwards the engine's error callback.
func (s *Session) SurfaceError(kind surface.Kind, cause error) (Snapshot, error) {
	return s.onSurface(kind, func(sf *surface.Surface) { sf.OnError(cause) })
}

// SurfaceRetry triggers the surface's retry affordance.
func (s *Session) SurfaceRetry(kind surface.Kind) (Snapshot, error) {
	return s.onSurface(kind, func(sf *surface.Surface) { sf.Retry() })
}

// SurfaceActivity restarts a surface's auto-hide timers.
func (s *Session) SurfaceActivity(kind surface.Kind) (Snapshot, error) {
	return s.onSurface(kind, (*surface.Surface).Activity)
}

// ToggleCaptions flips captions on a surface.
func (s *Session) ToggleCaptions(kind surface.Kind) (Snapshot, error) {
	return s.onSurface(kind, (*surface.Surface).ToggleCaptions)
}

// RequestFullscreen asks a surface for fullscreen; failure is not an error.
func (s *Session) RequestFullscreen(kind surface.Kind) (Snapshot, error) {
	return s.onSurface(kind, (*surface.Surface).RequestFullscreen)
}

// ReportProgress records watch progress for an on-demand asset. The store
// call is fire-and-forget.
func (s *Session) ReportProgress(id media.AssetID, progress float64) (Snapshot, error) {
	s.mu.Lock()
	asset, ok := catalog.Find(s.assets, id)
	if !ok {
		s.mu.Unlock()
		return s.Snapshot(), ErrUnknownAsset
	}
	if asset.IsLive() {
		s.mu.Unlock()
		return s.Snapshot(), ErrLiveProgress
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	s.progress[id] = progress
	userID := s.userID
	s.renderLocked()
	snap := s.publishLocked()
	s.mu.Unlock()

	s.reporter.Progress(userID, id, progress)
	return snap, nil
}

// Logout resets the session to Idle, detaches the scroll tracker and re-arms
// the interaction gate. The session stays usable for a later Start.
func (s *Session) Logout() Snapshot {
	s.tracker.Detach()
	snap := s.Dispatch(Logout{})

	s.mu.Lock()
	s.userID = ""
	s.assets = nil
	s.progress = make(map[media.AssetID]float64)
	closed := s.closed
	s.mu.Unlock()

	if !closed {
		s.gate.Reset()
	}
	return snap
}

// Teardown detaches every listener, stops all surface timers and closes
// snapshot watchers. The session ignores events afterwards.
func (s *Session) Teardown() {
	s.tracker.Detach()
	s.gate.Detach()
	s.main.Close()
	s.mini.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for sub, ch := range s.watchers {
		sub.Cancel()
		close(ch)
		delete(s.watchers, sub)
	}
}

// Closed reports whether Teardown has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ActiveListeners returns the number of attached listeners (gate, scroll
// tracker, snapshot watchers).
func (s *Session) ActiveListeners() int {
	return s.reg.Active()
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Watch subscribes to snapshots. The channel always holds the newest
// snapshot; a slow reader skips intermediate ones but never misses the last.
// cancel is idempotent.
func (s *Session) Watch() (<-chan Snapshot, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, ErrSessionClosed
	}
	sub := s.reg.Subscribe(watcherListener)
	ch := make(chan Snapshot, 1)
	s.watchers[sub] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.watchers[sub]; ok {
			sub.Cancel()
			close(c)
			delete(s.watchers, sub)
		}
	}
	return ch, cancel, nil
}

func (s *Session) onSurface(kind surface.Kind, fn func(*surface.Surface)) (Snapshot, error) {
	sf, err := s.surface(kind)
	if err != nil {
		return s.Snapshot(), err
	}
	fn(sf)
	return s.publish(), nil
}

// surfaceChanged is the surfaces' timer callback.
func (s *Session) surfaceChanged() {
	s.publish()
}

func (s *Session) surface(kind surface.Kind) (*surface.Surface, error) {
	switch kind {
	case surface.KindMain:
		return s.main, nil
	case surface.KindMini:
		return s.mini, nil
	}
	return nil, ErrUnknownSurface
}

// renderLocked hands each surface its asset. The active asset goes to at
// most one of them. Caller must hold s.mu.
func (s *Session) renderLocked() {
	st := s.state
	muted := st.Muted || !st.InteractionUnlocked

	mainProps := surface.Props{}
	if a := st.MainAsset(); a != nil {
		if st.Active != nil && media.SameAsset(a, st.Active) {
			mainProps = surface.Props{Asset: a, Muted: muted, Paused: st.Paused, AutoplayArmed: st.AutoplayArmed}
		} else {
			mainProps = surface.Props{Asset: s.withProgressLocked(a), Muted: muted, AutoplayArmed: true}
		}
	}

	miniProps := surface.Props{}
	if l := st.MiniAsset(); l != nil {
		miniProps = surface.Props{Asset: l, Muted: muted, Paused: st.Paused, AutoplayArmed: st.AutoplayArmed}
	}

	s.main.Render(mainProps)
	s.mini.Render(miniProps)
}

func (s *Session) withProgressLocked(a media.Asset) media.Asset {
	vod, ok := a.(*media.OnDemandAsset)
	if !ok {
		return a
	}
	p, ok := s.progress[vod.ID]
	if !ok {
		return a
	}
	cp := *vod
	cp.WatchProgress = p
	return &cp
}

func (s *Session) mergeProgress(p map[media.AssetID]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for id, v := range p {
		if _, set := s.progress[id]; !set {
			s.progress[id] = v
		}
	}
	s.renderLocked()
	s.publishLocked()
}
