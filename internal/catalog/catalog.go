package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"live-orchestrator/internal/media"
)

// ErrInvalidEntry is returned for catalog entries missing an id.
var ErrInvalidEntry = errors.New("catalog entry has no id")

// Provider supplies the ordered asset list. It is consulted once per
// session start; there is no live-update contract.
type Provider interface {
	Assets(ctx context.Context) ([]media.Asset, error)
}

// entry is the on-disk shape of one asset.
type entry struct {
	ID              string       `yaml:"id"`
	Title           string       `yaml:"title"`
	Category        string       `yaml:"category"`
	Live            bool         `yaml:"live"`
	ViewerCount     int          `yaml:"viewer_count"`
	DurationSeconds int          `yaml:"duration_seconds"`
	Source          media.Source `yaml:"source"`
}

type file struct {
	Assets []entry `yaml:"assets"`
}

// Parse decodes a YAML catalog into assets, preserving order.
func Parse(data []byte) ([]media.Asset, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	assets := make([]media.Asset, 0, len(f.Assets))
	seen := make(map[string]bool, len(f.Assets))
	for i, e := range f.Assets {
		if e.ID == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrInvalidEntry)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("entry %d: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true

		meta := media.Meta{
			ID:       media.AssetID(e.ID),
			Title:    e.Title,
			Category: e.Category,
			Source:   e.Source,
		}
		if e.Live {
			assets = append(assets, &media.LiveAsset{Meta: meta, ViewerCount: e.ViewerCount})
		} else {
			assets = append(assets, &media.OnDemandAsset{Meta: meta, DurationSeconds: e.DurationSeconds})
		}
	}
	return assets, nil
}

// FileProvider re-reads a YAML catalog file on every call.
type FileProvider struct {
	Path string
}

// Assets implements Provider.
func (p FileProvider) Assets(_ context.Context) ([]media.Asset, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Static is a fixed in-memory catalog.
type Static []media.Asset

// Assets implements Provider.
func (s Static) Assets(_ context.Context) ([]media.Asset, error) {
	return append([]media.Asset(nil), s...), nil
}

// Find returns the asset with the given id.
func Find(assets []media.Asset, id media.AssetID) (media.Asset, bool) {
	for _, a := range assets {
		if a.Info().ID == id {
			return a, true
		}
	}
	return nil, false
}
