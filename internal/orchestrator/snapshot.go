package orchestrator

import (
	"live-orchestrator/internal/media"
	"live-orchestrator/internal/surface"
)

// Snapshot is the client-facing view of a session after a transition.
type Snapshot struct {
	SessionID           string        `json:"session_id"`
	Version             uint64        `json:"version"`
	Mode                Mode          `json:"mode"`
	ActiveAssetID       media.AssetID `json:"active_asset_id,omitempty"`
	FocusedAssetID      media.AssetID `json:"focused_asset_id,omitempty"`
	SurfaceOfActive     Placement     `json:"surface_of_active"`
	Paused              bool          `json:"paused"`
	Muted               bool          `json:"muted"`
	AutoplayArmed       bool          `json:"autoplay_armed"`
	ScrollTriggered     bool          `json:"scroll_triggered"`
	InteractionUnlocked bool          `json:"interaction_unlocked"`
	// ScrollToMain increases each time the client should bring the main
	// surface into view.
	ScrollToMain uint64       `json:"scroll_to_main"`
	Main         surface.View `json:"main"`
	Mini         surface.View `json:"mini"`
}

// Snapshot returns the current view without publishing it.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// publish bumps the version and pushes the current view to watchers.
func (s *Session) publish() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishLocked()
}

// publishLocked must be called with s.mu held.
func (s *Session) publishLocked() Snapshot {
	if s.closed {
		return s.snapshotLocked()
	}
	s.version++
	snap := s.snapshotLocked()
	for _, ch := range s.watchers {
		offer(ch, snap)
	}
	return snap
}

// snapshotLocked must be called with s.mu held.
func (s *Session) snapshotLocked() Snapshot {
	st := s.state
	return Snapshot{
		SessionID:           s.id,
		Version:             s.version,
		Mode:                st.Mode(),
		ActiveAssetID:       media.IDOf(st.activeAsset()),
		FocusedAssetID:      media.IDOf(st.Focused),
		SurfaceOfActive:     st.SurfaceOfActive,
		Paused:              st.Paused,
		Muted:               st.Muted,
		AutoplayArmed:       st.AutoplayArmed,
		ScrollTriggered:     st.ScrollTriggered,
		InteractionUnlocked: st.InteractionUnlocked,
		ScrollToMain:        s.scrollToMain,
		Main:                s.main.View(),
		Mini:                s.mini.View(),
	}
}

// offer replaces whatever is buffered in ch with snap without blocking.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
