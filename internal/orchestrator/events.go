package orchestrator

import (
	"live-orchestrator/internal/media"
	"live-orchestrator/internal/sensor"
)

// Event is one input to the transition function.
type Event interface {
	Name() string
}

// Init fires when the session starts with a freshly loaded catalog.
type Init struct {
	Catalog []media.Asset
}

// Select is an explicit user choice of an asset, live or not.
type Select struct {
	Asset media.Asset
}

// Scroll is one evaluated scroll-tracker reading.
type Scroll struct {
	Direction sensor.Direction
	Visible   bool
	Offset    float64
}

// Minimize moves the active asset from the main to the mini surface.
type Minimize struct{}

// Maximize moves the active asset from the mini back to the main surface.
type Maximize struct{}

// Close releases the active asset from the mini surface (or from pause).
type Close struct{}

// Unlock records the first user gesture of the session.
type Unlock struct{}

// SoundOn is an explicit request to hear the active asset.
type SoundOn struct{}

// SoundOff is an explicit request to silence the active asset.
type SoundOff struct{}

// TogglePause flips between playing and deliberately stopped.
type TogglePause struct{}

// Logout resets the session completely.
type Logout struct{}

func (Init) Name() string        { return "init" }
func (Select) Name() string      { return "select" }
func (Scroll) Name() string      { return "scroll" }
func (Minimize) Name() string    { return "minimize" }
func (Maximize) Name() string    { return "maximize" }
func (Close) Name() string       { return "close" }
func (Unlock) Name() string      { return "unlock" }
func (SoundOn) Name() string     { return "sound_on" }
func (SoundOff) Name() string    { return "sound_off" }
func (TogglePause) Name() string { return "toggle_pause" }
func (Logout) Name() string      { return "logout" }

// Effect is a side effect requested by a transition, executed by the session.
type Effect int

const (
	// EffectScrollMainIntoView asks the client to bring the main surface into view.
	EffectScrollMainIntoView Effect = iota + 1
)
