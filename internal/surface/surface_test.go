package surface

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"live-orchestrator/internal/media"
)

var (
	live = &media.LiveAsset{Meta: media.Meta{ID: "live-1", Title: "News 24", Source: media.Source{Provider: "youtube", Ref: "abc"}}}
	vod  = &media.OnDemandAsset{Meta: media.Meta{ID: "vod-1", Title: "Replay"}, WatchProgress: 0.4}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestSurface(kind Kind, clk clock.Clock, fs Fullscreener, changes *atomic.Int32) *Surface {
	return New(kind, clk, Config{LoadTimeout: 8 * time.Second, CaptionHide: 3 * time.Second, ControlsHide: 3 * time.Second},
		quietLogger(), fs, func() {
			if changes != nil {
				changes.Add(1)
			}
		})
}

type fakeFullscreen struct {
	err   error
	calls int
}

func (f *fakeFullscreen) RequestFullscreen(Kind) error {
	f.calls++
	return f.err
}

func TestSurface_mini_rejects_non_live(t *testing.T) {
	s := newTestSurface(KindMini, clock.NewMock(), nil, nil)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-live asset on mini surface")
		}
	}()
	s.Render(Props{Asset: vod})
}

func TestSurface_mini_accepts_live_and_nil(t *testing.T) {
	s := newTestSurface(KindMini, clock.NewMock(), nil, nil)
	s.Render(Props{Asset: live})
	s.Render(Props{})
	if s.Status() != StatusIdle {
		t.Errorf("empty surface should be idle, got %s", s.Status())
	}
}

func TestSurface_loading_then_ready(t *testing.T) {
	s := newTestSurface(KindMain, clock.NewMock(), nil, nil)
	s.Render(Props{Asset: live, Muted: true, AutoplayArmed: true})

	v := s.View()
	if !v.Loading || v.Status != StatusLoading {
		t.Fatalf("expected loading, got %+v", v)
	}
	if !v.Autoplay || !v.Muted || !v.Live {
		t.Errorf("unexpected flags %+v", v)
	}

	s.OnReady()
	if s.Status() != StatusReady {
		t.Errorf("expected ready, got %s", s.Status())
	}
}

func TestSurface_load_timeout_clears_spinner(t *testing.T) {
	clk := clock.NewMock()
	var changes atomic.Int32
	s := newTestSurface(KindMain, clk, nil, &changes)
	s.Render(Props{Asset: live})

	clk.Add(8 * time.Second)
	waitFor(t, func() bool { return s.Status() == StatusReady })
	if s.View().Retry {
		t.Error("timeout must not fail the asset")
	}
	waitFor(t, func() bool { return changes.Load() >= 1 })
}

func TestSurface_same_asset_does_not_restart_loading(t *testing.T) {
	s := newTestSurface(KindMain, clock.NewMock(), nil, nil)
	s.Render(Props{Asset: live, Muted: true})
	s.OnReady()
	s.Render(Props{Asset: live, Muted: false})

	if s.Status() != StatusReady {
		t.Errorf("re-render of same asset should keep ready, got %s", s.Status())
	}
	if s.View().Muted {
		t.Error("mute display should follow props")
	}
}

func TestSurface_error_and_retry(t *testing.T) {
	s := newTestSurface(KindMain, clock.NewMock(), nil, nil)

	if s.Retry() {
		t.Error("retry on empty surface should be a no-op")
	}

	s.Render(Props{Asset: live})
	s.OnError(errors.New("embed blocked"))

	v := s.View()
	if v.Status != StatusUnavailable || !v.Retry || v.Error != "embed blocked" {
		t.Fatalf("expected unavailable with retry, got %+v", v)
	}
	if media.IDOf(s.Asset()) != "live-1" {
		t.Error("error must not unassign the asset")
	}

	if !s.Retry() {
		t.Fatal("retry should succeed from unavailable")
	}
	if s.Status() != StatusLoading {
		t.Errorf("expected loading after retry, got %s", s.Status())
	}
}

func TestSurface_toggle_mute_reports_inverse(t *testing.T) {
	s := newTestSurface(KindMain, clock.NewMock(), nil, nil)
	s.Render(Props{Asset: live, Muted: true})
	if got := s.ToggleMute(); got != false {
		t.Errorf("muted surface should request unmute, got %v", got)
	}
	if !s.View().Muted {
		t.Error("toggle must not change the display until the session re-renders")
	}
}

func TestSurface_fullscreen_best_effort(t *testing.T) {
	t.Run("unsupported_is_ignored", func(t *testing.T) {
		fs := &fakeFullscreen{err: ErrFullscreenUnsupported}
		s := newTestSurface(KindMain, clock.NewMock(), fs, nil)
		s.Render(Props{Asset: live})
		s.RequestFullscreen()
		if fs.calls != 1 || s.View().Fullscreen {
			t.Errorf("calls=%d fullscreen=%v", fs.calls, s.View().Fullscreen)
		}
	})

	t.Run("supported", func(t *testing.T) {
		fs := &fakeFullscreen{}
		s := newTestSurface(KindMini, clock.NewMock(), fs, nil)
		s.Render(Props{Asset: live})
		s.RequestFullscreen()
		if !s.View().Fullscreen {
			t.Error("expected fullscreen")
		}
	})

	t.Run("empty_surface_skips_platform", func(t *testing.T) {
		fs := &fakeFullscreen{}
		s := newTestSurface(KindMain, clock.NewMock(), fs, nil)
		s.RequestFullscreen()
		if fs.calls != 0 {
			t.Error("empty surface should not request fullscreen")
		}
	})
}

func TestSurface_captions_auto_hide_and_restart(t *testing.T) {
	clk := clock.NewMock()
	s := newTestSurface(KindMain, clk, nil, nil)
	s.Render(Props{Asset: live})

	s.ToggleCaptions()
	if v := s.View(); !v.CaptionsOn || !v.CaptionVisible {
		t.Fatalf("captions should be on and visible: %+v", v)
	}

	clk.Add(2 * time.Second)
	s.Activity()
	clk.Add(2 * time.Second)
	time.Sleep(5 * time.Millisecond)
	if !s.View().CaptionVisible {
		t.Fatal("activity should restart the caption timer")
	}

	clk.Add(time.Second)
	waitFor(t, func() bool { return !s.View().CaptionVisible })
	if !s.View().CaptionsOn {
		t.Error("auto-hide hides the cue, not the captions setting")
	}

	s.ToggleCaptions()
	if v := s.View(); v.CaptionsOn || v.CaptionVisible {
		t.Errorf("captions should be off: %+v", v)
	}
}

func TestSurface_controls_auto_hide(t *testing.T) {
	clk := clock.NewMock()
	s := newTestSurface(KindMain, clk, nil, nil)
	s.Render(Props{Asset: live})

	if !s.View().ControlsVisible {
		t.Fatal("controls visible on new asset")
	}
	clk.Add(3 * time.Second)
	waitFor(t, func() bool { return !s.View().ControlsVisible })

	s.Activity()
	if !s.View().ControlsVisible {
		t.Error("activity should reveal controls")
	}
}

func TestSurface_progress_only_for_on_demand(t *testing.T) {
	s := newTestSurface(KindMain, clock.NewMock(), nil, nil)

	s.Render(Props{Asset: vod})
	if p := s.View().Progress; p == nil || *p != 0.4 {
		t.Errorf("expected progress 0.4, got %v", p)
	}

	s.Render(Props{Asset: live})
	if s.View().Progress != nil {
		t.Error("live assets never show progress")
	}

	s.Render(Props{Asset: &media.OnDemandAsset{Meta: media.Meta{ID: "vod-2"}}})
	if s.View().Progress != nil {
		t.Error("zero progress should not be drawn")
	}
}

func TestSurface_close_ignores_renders(t *testing.T) {
	s := newTestSurface(KindMain, clock.NewMock(), nil, nil)
	s.Render(Props{Asset: live})
	s.Close()
	s.Render(Props{Asset: live})
	if s.Asset() != nil {
		t.Error("closed surface should ignore renders")
	}
}

func TestParseKind(t *testing.T) {
	if k, ok := ParseKind("mini"); !ok || k != KindMini {
		t.Errorf("ParseKind(mini) = %v %v", k, ok)
	}
	if _, ok := ParseKind("sidebar"); ok {
		t.Error("unknown kind should not parse")
	}
}
