package orchestrator

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"live-orchestrator/internal/catalog"
	"live-orchestrator/internal/history"
	"live-orchestrator/internal/media"
	"live-orchestrator/internal/platform/metrics"
	"live-orchestrator/internal/sensor"
	"live-orchestrator/internal/surface"
)

// ServiceOptions configures a Service. Zero values take defaults; Metrics
// and Reporter may be nil.
type ServiceOptions struct {
	Catalog  catalog.Provider
	Reporter *history.Reporter
	Metrics  *metrics.Metrics
	Clock    clock.Clock
	Log      *slog.Logger
	Config   Config
	Tracker  sensor.TrackerConfig
	Surface  surface.Config
	Screen   surface.Fullscreener

	// NewID generates session ids; defaults to random UUIDs.
	NewID func() string
}

// Service creates, routes to and ends playback sessions.
type Service struct {
	repo Repository
	opts ServiceOptions
}

// NewService returns a Service that keeps sessions in repo.
func NewService(repo Repository, opts ServiceOptions) *Service {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Static(nil)
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{repo: repo, opts: opts}
}

// StartSession loads the catalog and starts a session for userID ("" for an
// anonymous viewer). A catalog failure is logged and the session starts
// idle with no assets.
func (s *Service) StartSession(ctx context.Context, userID string) (*Session, Snapshot, error) {
	assets, err := s.opts.Catalog.Assets(ctx)
	if err != nil {
		s.opts.Log.Warn("catalog unavailable, starting idle session", slog.String("error", err.Error()))
		assets = nil
	}

	sess := NewSession(SessionOptions{
		ID:       s.opts.NewID(),
		Clock:    s.opts.Clock,
		Log:      s.opts.Log,
		Config:   s.opts.Config,
		Tracker:  s.opts.Tracker,
		Surface:  s.opts.Surface,
		Screen:   s.opts.Screen,
		Reporter: s.opts.Reporter,
		OnEvent:  s.recordEvent,
	})
	if err := s.repo.Add(sess); err != nil {
		sess.Teardown()
		return nil, Snapshot{}, err
	}

	snap := sess.Start(userID, assets)
	if s.opts.Metrics != nil {
		s.opts.Metrics.IncSessionsStarted()
	}
	s.opts.Log.Info("session started",
		slog.String("session_id", sess.ID()),
		slog.Bool("authenticated", userID != ""),
		slog.String("mode", string(snap.Mode)))
	return sess, snap, nil
}

// Session returns the session with the given id.
func (s *Service) Session(id string) (*Session, error) {
	sess, ok := s.repo.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Handle routes one client message to a session.
func (s *Service) Handle(id string, msg Message) (Snapshot, error) {
	sess, err := s.Session(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Handle(msg)
}

// EndSession logs the session out, tears it down and forgets it. Ending an
// unknown session is a no-op.
func (s *Service) EndSession(id string) error {
	sess, ok := s.repo.Remove(id)
	if !ok {
		return nil
	}
	sess.Logout()
	sess.Teardown()
	if n := sess.ActiveListeners(); n != 0 {
		s.opts.Log.Error("listeners left attached after teardown",
			slog.String("session_id", id), slog.Int("count", n))
	}
	return nil
}

// Catalog returns the current catalog.
func (s *Service) Catalog(ctx context.Context) ([]media.Asset, error) {
	return s.opts.Catalog.Assets(ctx)
}

// ActiveSessionCount returns the number of live sessions.
func (s *Service) ActiveSessionCount() int {
	return s.repo.ActiveSessionCount()
}

// Shutdown tears down every session and waits for in-flight history calls.
func (s *Service) Shutdown() {
	for _, sess := range s.repo.All() {
		_ = s.EndSession(sess.ID())
	}
	s.opts.Reporter.Wait()
}

func (s *Service) recordEvent(name string, changed bool) {
	if s.opts.Metrics == nil {
		return
	}
	s.opts.Metrics.IncEvent(name)
	if changed {
		s.opts.Metrics.IncTransitions()
	}
}
