package orchestrator

import (
	"errors"
	"fmt"

	"live-orchestrator/internal/media"
	"live-orchestrator/internal/sensor"
)

// ErrInvariant wraps every invariant violation reported by Check.
var ErrInvariant = errors.New("session state invariant violated")

// Apply computes the state that follows s on ev. It is total: any event is
// accepted in any state, and combinations without a transition return s
// unchanged. Every transition that touches the active asset sets
// SurfaceOfActive explicitly so the asset is never placed on two surfaces.
func Apply(s State, ev Event, cfg Config) (State, []Effect) {
	cfg = cfg.withDefaults()

	switch e := ev.(type) {
	case Init:
		return applyInit(s, e), nil
	case Select:
		return applySelect(s, e), nil
	case Scroll:
		return applyScroll(s, e, cfg), nil
	case Minimize:
		if s.Mode() != ModeMainLive {
			return s, nil
		}
		s.SurfaceOfActive = PlacementMini
		s.ScrollTriggered = false
		return s, nil
	case Maximize:
		if s.Mode() != ModeMiniLive {
			return s, nil
		}
		s.SurfaceOfActive = PlacementMain
		s.ScrollTriggered = false
		s.Focused = s.Active
		return s, []Effect{EffectScrollMainIntoView}
	case Close:
		return applyClose(s), nil
	case Unlock:
		s.InteractionUnlocked = true
		return s, nil
	case SoundOn:
		if s.Active == nil {
			return s, nil
		}
		s.InteractionUnlocked = true
		s.Muted = false
		return s, nil
	case SoundOff:
		if s.Active == nil {
			return s, nil
		}
		s.Muted = true
		return s, nil
	case TogglePause:
		return applyTogglePause(s), nil
	case Logout:
		return State{}, nil
	}
	return s, nil
}

func applyInit(s State, e Init) State {
	if s.Mode() != ModeIdle {
		return s
	}
	first := media.FirstLive(e.Catalog)
	if first == nil {
		return s
	}
	return claim(s, first)
}

func applySelect(s State, e Select) State {
	if e.Asset == nil {
		return s
	}
	if live, ok := media.AsLive(e.Asset); ok {
		return claim(s, live)
	}

	prev := s.Mode()
	s.Focused = e.Asset
	if s.Active == nil {
		return s
	}
	if prev == ModeMainLive {
		s.SurfaceOfActive = PlacementMini
	}
	// The mini placement is now the result of a selection, so scrolling
	// back up must not pull the live asset over the focused one.
	s.ScrollTriggered = false
	return s
}

// claim makes live the active and focused asset, playing on the main surface.
func claim(s State, live *media.LiveAsset) State {
	s.Active = live
	s.Focused = live
	s.SurfaceOfActive = PlacementMain
	s.Paused = false
	s.AutoplayArmed = true
	s.ScrollTriggered = false
	s.Muted = !s.InteractionUnlocked
	return s
}

func applyScroll(s State, e Scroll, cfg Config) State {
	switch {
	case e.Direction == sensor.DirectionDown && !e.Visible && e.Offset > cfg.ScrollThreshold:
		if s.Mode() != ModeMainLive || s.ScrollTriggered {
			return s
		}
		s.SurfaceOfActive = PlacementMini
		s.ScrollTriggered = true
		// Scroll-triggered mini always starts silent to avoid surprise audio.
		s.Muted = true
	case e.Direction == sensor.DirectionUp && e.Visible:
		if s.Mode() != ModeMiniLive || !s.ScrollTriggered {
			return s
		}
		s.SurfaceOfActive = PlacementMain
		s.ScrollTriggered = false
	}
	return s
}

func applyClose(s State) State {
	switch s.Mode() {
	case ModeMiniLive, ModePaused:
	default:
		return s
	}
	if media.SameAsset(s.Focused, s.activeAsset()) {
		s.Focused = nil
	}
	s.Active = nil
	s.SurfaceOfActive = PlacementHidden
	s.Paused = false
	s.AutoplayArmed = false
	s.ScrollTriggered = false
	return s
}

func applyTogglePause(s State) State {
	switch s.Mode() {
	case ModeMainLive, ModeMiniLive:
		s.Paused = true
		s.SurfaceOfActive = PlacementHidden
		s.AutoplayArmed = false
		s.ScrollTriggered = false
	case ModePaused:
		s.Paused = false
		s.SurfaceOfActive = PlacementMini
		s.AutoplayArmed = true
	}
	return s
}

// Check reports the first invariant s violates, or nil.
func Check(s State) error {
	if s.Active != nil && !s.Active.IsLive() {
		return fmt.Errorf("%w: active asset %q is not live", ErrInvariant, s.Active.ID)
	}
	if s.Active == nil {
		if s.SurfaceOfActive != PlacementHidden {
			return fmt.Errorf("%w: no active asset but placed on %s", ErrInvariant, s.SurfaceOfActive)
		}
		if s.Paused {
			return fmt.Errorf("%w: no active asset but paused", ErrInvariant)
		}
	}
	if s.SurfaceOfActive == PlacementHidden && s.Active != nil && !s.Paused {
		return fmt.Errorf("%w: active asset hidden without pause", ErrInvariant)
	}
	if s.Paused && s.SurfaceOfActive != PlacementHidden {
		return fmt.Errorf("%w: paused asset placed on %s", ErrInvariant, s.SurfaceOfActive)
	}
	if s.Active != nil && !s.InteractionUnlocked && !s.Muted {
		return fmt.Errorf("%w: unmuted before first user gesture", ErrInvariant)
	}
	if s.ScrollTriggered && (s.Active == nil || s.SurfaceOfActive != PlacementMini) {
		return fmt.Errorf("%w: scroll-triggered flag outside mini placement", ErrInvariant)
	}
	if s.Active != nil && s.SurfaceOfActive == PlacementMain && !media.SameAsset(s.Focused, s.Active) {
		return fmt.Errorf("%w: main shows active asset but focus is elsewhere", ErrInvariant)
	}
	return nil
}
