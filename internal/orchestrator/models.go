package orchestrator

import (
	"fmt"

	"live-orchestrator/internal/media"
)

// DefaultScrollThreshold is the scroll offset, in pixels, past which a
// downward scroll may move the active asset to the mini surface.
const DefaultScrollThreshold = 150.0

// Config tunes the transition function.
type Config struct {
	ScrollThreshold float64
}

func (c Config) withDefaults() Config {
	if c.ScrollThreshold <= 0 {
		c.ScrollThreshold = DefaultScrollThreshold
	}
	return c
}

// DefaultConfig returns the production transition settings.
func DefaultConfig() Config {
	return Config{ScrollThreshold: DefaultScrollThreshold}
}

// Placement is the surface currently rendering the active asset.
type Placement int

const (
	PlacementHidden Placement = iota
	PlacementMain
	PlacementMini
)

func (p Placement) String() string {
	switch p {
	case PlacementHidden:
		return "hidden"
	case PlacementMain:
		return "main"
	case PlacementMini:
		return "mini"
	}
	return fmt.Sprintf("placement(%d)", int(p))
}

// MarshalText renders the placement as its name.
func (p Placement) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a placement name.
func (p *Placement) UnmarshalText(b []byte) error {
	switch string(b) {
	case "hidden":
		*p = PlacementHidden
	case "main":
		*p = PlacementMain
	case "mini":
		*p = PlacementMini
	default:
		return fmt.Errorf("unknown placement %q", b)
	}
	return nil
}

// Mode summarises State into the orchestrator's five conceptual modes.
// Closed is never observed: it collapses to Idle within the transition.
type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeMainLive Mode = "main_live"
	ModeMiniLive Mode = "mini_live"
	ModePaused   Mode = "paused"
)

// State is the session's canonical playback record. Only Apply produces new
// values; nothing else writes its fields.
type State struct {
	// Active is the live asset claimed by the session. Non-live assets
	// cannot occupy it.
	Active *media.LiveAsset
	// Focused is the asset shown in the main surface, live or not.
	Focused media.Asset
	// SurfaceOfActive is where Active is rendered, if anywhere.
	SurfaceOfActive Placement
	// Paused means Active is deliberately stopped, not merely hidden.
	Paused bool
	// Muted is the user's sound choice for Active.
	Muted bool
	// AutoplayArmed means playback of Active should start on its own.
	AutoplayArmed bool
	// ScrollTriggered marks a mini placement caused by scrolling away from
	// the main surface; only such placements are undone by scrolling back.
	ScrollTriggered bool
	// InteractionUnlocked flips to true on the first user gesture.
	InteractionUnlocked bool
}

// Mode derives the conceptual mode of s.
func (s State) Mode() Mode {
	switch {
	case s.Active == nil:
		return ModeIdle
	case s.Paused:
		return ModePaused
	case s.SurfaceOfActive == PlacementMain:
		return ModeMainLive
	case s.SurfaceOfActive == PlacementMini:
		return ModeMiniLive
	}
	return ModePaused
}

// Audible reports whether the active asset may produce sound. Before the
// first gesture nothing is audible, whatever Muted says.
func (s State) Audible() bool {
	return s.Active != nil && !s.Muted && s.InteractionUnlocked
}

// activeAsset returns Active as a media.Asset without a typed nil.
func (s State) activeAsset() media.Asset {
	if s.Active == nil {
		return nil
	}
	return s.Active
}

// MainAsset returns what the main surface shows: the active asset when it is
// placed there, otherwise the focused asset unless that is a live asset not
// currently claimed (a live asset never plays outside the active slot).
func (s State) MainAsset() media.Asset {
	if s.Active != nil && s.SurfaceOfActive == PlacementMain {
		return s.Active
	}
	if s.Focused == nil || s.Focused.IsLive() {
		return nil
	}
	return s.Focused
}

// MiniAsset returns what the mini surface shows.
func (s State) MiniAsset() *media.LiveAsset {
	if s.Active != nil && s.SurfaceOfActive == PlacementMini {
		return s.Active
	}
	return nil
}
