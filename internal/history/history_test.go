package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"live-orchestrator/internal/media"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingStore struct{}

func (failingStore) RecordSelection(context.Context, string, media.AssetID, time.Time) error {
	return errors.New("backend down")
}

func (failingStore) SaveProgress(context.Context, string, media.AssetID, float64) error {
	return errors.New("backend down")
}

func (failingStore) Progress(context.Context, string) (map[media.AssetID]float64, error) {
	return nil, errors.New("backend down")
}

func TestSQLiteStore_roundtrip(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.RecordSelection(ctx, "u1", "live-1", time.Now()); err != nil {
		t.Fatalf("RecordSelection: %v", err)
	}
	if err := store.RecordSelection(ctx, "u1", "vod-1", time.Now()); err != nil {
		t.Fatalf("RecordSelection: %v", err)
	}
	n, err := store.SelectionCount(ctx, "u1")
	if err != nil || n != 2 {
		t.Errorf("SelectionCount = %d, %v; want 2", n, err)
	}

	if err := store.SaveProgress(ctx, "u1", "vod-1", 0.25); err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}
	if err := store.SaveProgress(ctx, "u1", "vod-1", 0.5); err != nil {
		t.Fatalf("SaveProgress upsert: %v", err)
	}
	p, err := store.Progress(ctx, "u1")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if len(p) != 1 || p["vod-1"] != 0.5 {
		t.Errorf("expected vod-1 at 0.5, got %v", p)
	}

	other, _ := store.Progress(ctx, "u2")
	if len(other) != 0 {
		t.Errorf("progress must be per user, got %v", other)
	}
}

func TestReporter_records_in_background(t *testing.T) {
	store := NewMemoryStore()
	r := NewReporter(store, quietLogger(), time.Second, nil)

	r.Selected("u1", "live-1")
	r.Selected("", "ignored")
	r.Progress("u1", "vod-1", 0.3)
	r.Wait()

	sel := store.Selections()
	if len(sel) != 1 || sel[0].AssetID != "live-1" {
		t.Errorf("unexpected selections %v", sel)
	}

	var got map[media.AssetID]float64
	r.LoadProgress("u1", func(p map[media.AssetID]float64) { got = p })
	r.Wait()
	if got["vod-1"] != 0.3 {
		t.Errorf("expected loaded progress 0.3, got %v", got)
	}
}

func TestReporter_failures_are_swallowed(t *testing.T) {
	var failures atomic.Int32
	r := NewReporter(failingStore{}, quietLogger(), time.Second, func(string) { failures.Add(1) })

	called := false
	r.Selected("u1", "live-1")
	r.Progress("u1", "vod-1", 0.1)
	r.LoadProgress("u1", func(map[media.AssetID]float64) { called = true })
	r.Wait()

	if failures.Load() != 3 {
		t.Errorf("expected 3 counted failures, got %d", failures.Load())
	}
	if called {
		t.Error("done must not run when loading fails")
	}
}

func TestReporter_nil_is_noop(t *testing.T) {
	var r *Reporter
	r.Selected("u1", "x")
	r.Progress("u1", "x", 1)
	r.LoadProgress("u1", func(map[media.AssetID]float64) {})
	r.Wait()
}
