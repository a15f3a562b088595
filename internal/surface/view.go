package surface

import "live-orchestrator/internal/media"

// View is the render-ready description of a surface sent to the client.
type View struct {
	Kind            Kind          `json:"kind"`
	AssetID         media.AssetID `json:"asset_id,omitempty"`
	Title           string        `json:"title,omitempty"`
	Live            bool          `json:"live"`
	Muted           bool          `json:"muted"`
	Paused          bool          `json:"paused"`
	Autoplay        bool          `json:"autoplay"`
	Status          Status        `json:"status"`
	Loading         bool          `json:"loading"`
	Retry           bool          `json:"retry"`
	Error           string        `json:"error,omitempty"`
	CaptionsOn      bool          `json:"captions_on"`
	CaptionVisible  bool          `json:"caption_visible"`
	ControlsVisible bool          `json:"controls_visible"`
	Fullscreen      bool          `json:"fullscreen"`
	Progress        *float64      `json:"progress,omitempty"`
	EmbedURL        string        `json:"embed_url,omitempty"`
}

// View returns the surface's current render description.
func (s *Surface) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Kind:            s.kind,
		Muted:           s.props.Muted,
		Paused:          s.props.Paused,
		Autoplay:        s.props.AutoplayArmed && !s.props.Paused,
		Status:          s.status,
		Loading:         s.status == StatusLoading,
		Retry:           s.status == StatusUnavailable,
		Error:           s.lastErr,
		CaptionsOn:      s.captionsOn,
		CaptionVisible:  s.captionVisible,
		ControlsVisible: s.controlsVisible,
		Fullscreen:      s.fullscreen,
	}

	a := s.props.Asset
	if a == nil {
		return v
	}
	info := a.Info()
	v.AssetID = info.ID
	v.Title = info.Title
	v.Live = a.IsLive()
	v.Progress = ProgressOf(a)
	v.EmbedURL = media.BuildEmbedURL(info.Source, media.EmbedParams{
		Autoplay: v.Autoplay,
		Muted:    v.Muted,
		Live:     v.Live,
	})
	return v
}

// ProgressOf returns the progress indicator value for a, or nil when none
// should be drawn. Live assets never show progress.
func ProgressOf(a media.Asset) *float64 {
	vod, ok := a.(*media.OnDemandAsset)
	if !ok || vod == nil || vod.WatchProgress <= 0 {
		return nil
	}
	p := vod.WatchProgress
	if p > 1 {
		p = 1
	}
	return &p
}
