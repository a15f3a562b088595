package history

import (
	"context"
	"sync"
	"time"

	"live-orchestrator/internal/media"
)

// Store persists watch history and watch progress per user.
type Store interface {
	RecordSelection(ctx context.Context, userID string, id media.AssetID, at time.Time) error
	SaveProgress(ctx context.Context, userID string, id media.AssetID, progress float64) error
	Progress(ctx context.Context, userID string) (map[media.AssetID]float64, error)
}

// Selection is one watch-history row.
type Selection struct {
	UserID  string
	AssetID media.AssetID
	At      time.Time
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu         sync.Mutex
	selections []Selection
	progress   map[string]map[media.AssetID]float64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{progress: make(map[string]map[media.AssetID]float64)}
}

// RecordSelection implements Store.RecordSelection.
func (m *MemoryStore) RecordSelection(_ context.Context, userID string, id media.AssetID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selections = append(m.selections, Selection{UserID: userID, AssetID: id, At: at})
	return nil
}

// SaveProgress implements Store.SaveProgress.
func (m *MemoryStore) SaveProgress(_ context.Context, userID string, id media.AssetID, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[userID]
	if !ok {
		p = make(map[media.AssetID]float64)
		m.progress[userID] = p
	}
	p[id] = progress
	return nil
}

// Progress implements Store.Progress.
func (m *MemoryStore) Progress(_ context.Context, userID string) (map[media.AssetID]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[media.AssetID]float64, len(m.progress[userID]))
	for id, p := range m.progress[userID] {
		out[id] = p
	}
	return out, nil
}

// Selections returns a copy of all recorded selections in insertion order.
func (m *MemoryStore) Selections() []Selection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Selection(nil), m.selections...)
}
