package media

// AssetID uniquely identifies a media item in the catalog.
type AssetID string

// Source describes where the embedded player fetches an asset from.
// The orchestrator never interprets it; it is passed through to the engine.
type Source struct {
	Provider string `json:"provider" yaml:"provider"` // e.g. "youtube", "hls"
	Ref      string `json:"ref" yaml:"ref"`           // provider-specific id or URL
}

// Meta holds the attributes shared by every asset.
type Meta struct {
	ID       AssetID `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Source   Source  `json:"source"`
}

// Asset is either a *LiveAsset or an *OnDemandAsset.
type Asset interface {
	Info() Meta
	IsLive() bool
	asset()
}

// LiveAsset is an ongoing broadcast with no fixed duration.
type LiveAsset struct {
	Meta
	ViewerCount int `json:"viewer_count"`
}

// Info implements Asset.
func (a *LiveAsset) Info() Meta { return a.Meta }

// IsLive implements Asset.
func (a *LiveAsset) IsLive() bool { return true }

func (a *LiveAsset) asset() {}

// OnDemandAsset is a recorded item. WatchProgress is the fraction watched in [0,1].
type OnDemandAsset struct {
	Meta
	DurationSeconds int     `json:"duration_seconds"`
	WatchProgress   float64 `json:"watch_progress"`
}

// Info implements Asset.
func (a *OnDemandAsset) Info() Meta { return a.Meta }

// IsLive implements Asset.
func (a *OnDemandAsset) IsLive() bool { return false }

func (a *OnDemandAsset) asset() {}

// IDOf returns the id of a, or "" when a is nil.
func IDOf(a Asset) AssetID {
	if a == nil {
		return ""
	}
	return a.Info().ID
}

// SameAsset reports whether a and b refer to the same catalog item.
func SameAsset(a, b Asset) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Info().ID == b.Info().ID
}

// AsLive returns the live variant of a, if it is one.
func AsLive(a Asset) (*LiveAsset, bool) {
	l, ok := a.(*LiveAsset)
	return l, ok && l != nil
}

// FirstLive returns the first live asset of an ordered catalog, or nil.
func FirstLive(assets []Asset) *LiveAsset {
	for _, a := range assets {
		if l, ok := AsLive(a); ok {
			return l
		}
	}
	return nil
}
