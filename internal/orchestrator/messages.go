package orchestrator

import (
	"errors"
	"fmt"

	"live-orchestrator/internal/media"
	"live-orchestrator/internal/sensor"
	"live-orchestrator/internal/surface"
)

// ErrUnknownEvent is returned for inbound messages with an unrecognised type.
var ErrUnknownEvent = errors.New("unknown event type")

// Message is one inbound client message, over HTTP or WebSocket.
type Message struct {
	Type     string  `json:"type"`
	Gesture  string  `json:"gesture,omitempty"`
	AssetID  string  `json:"asset_id,omitempty"`
	Surface  string  `json:"surface,omitempty"`
	Error    string  `json:"error,omitempty"`
	Progress float64 `json:"progress,omitempty"`

	sensor.Sample
}

// Handle routes a client message to the session and returns the resulting
// snapshot. Sensor messages (gesture, scroll) return the current snapshot;
// their effects, if any, are published when they land.
func (s *Session) Handle(msg Message) (Snapshot, error) {
	switch msg.Type {
	case "gesture":
		s.Gesture(sensor.Gesture(msg.Gesture))
		return s.Snapshot(), nil
	case "scroll":
		s.ScrollSample(msg.Sample)
		return s.Snapshot(), nil
	case "select":
		return s.Select(media.AssetID(msg.AssetID))
	case "minimize":
		return s.Dispatch(Minimize{}), nil
	case "maximize":
		return s.Dispatch(Maximize{}), nil
	case "close":
		return s.Dispatch(Close{}), nil
	case "sound_on":
		return s.Dispatch(SoundOn{}), nil
	case "sound_off":
		return s.Dispatch(SoundOff{}), nil
	case "toggle_pause":
		return s.Dispatch(TogglePause{}), nil
	case "progress":
		return s.ReportProgress(media.AssetID(msg.AssetID), msg.Progress)
	}

	kind, ok := surface.ParseKind(msg.Surface)
	switch msg.Type {
	case "toggle_mute", "surface_ready", "surface_error", "surface_retry",
		"surface_activity", "toggle_captions", "fullscreen":
		if !ok {
			return s.Snapshot(), fmt.Errorf("%w: %q", ErrUnknownSurface, msg.Surface)
		}
	default:
		return s.Snapshot(), fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}

	switch msg.Type {
	case "toggle_mute":
		return s.ToggleMute(kind)
	case "surface_ready":
		return s.SurfaceReady(kind)
	case "surface_error":
		return s.SurfaceError(kind, errors.New(msg.Error))
	case "surface_retry":
		return s.SurfaceRetry(kind)
	case "surface_activity":
		return s.SurfaceActivity(kind)
	case "toggle_captions":
		return s.ToggleCaptions(kind)
	default:
		return s.RequestFullscreen(kind)
	}
}
