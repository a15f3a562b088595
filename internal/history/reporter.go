package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"live-orchestrator/internal/media"
)

// DefaultTimeout bounds each background store call.
const DefaultTimeout = 5 * time.Second

// Reporter performs fire-and-forget history calls off the playback path.
// Failures are logged and counted; callers never see them.
type Reporter struct {
	store     Store
	log       *slog.Logger
	timeout   time.Duration
	onFailure func(op string)
	now       func() time.Time

	wg sync.WaitGroup
}

// NewReporter returns a Reporter over store. onFailure may be nil.
func NewReporter(store Store, log *slog.Logger, timeout time.Duration, onFailure func(op string)) *Reporter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{
		store:     store,
		log:       log,
		timeout:   timeout,
		onFailure: onFailure,
		now:       time.Now,
	}
}

// Selected reports that userID selected asset id.
func (r *Reporter) Selected(userID string, id media.AssetID) {
	if r == nil || r.store == nil || userID == "" {
		return
	}
	at := r.now()
	r.run("record_selection", userID, id, func(ctx context.Context) error {
		return r.store.RecordSelection(ctx, userID, id, at)
	})
}

// Progress reports watch progress for an on-demand asset.
func (r *Reporter) Progress(userID string, id media.AssetID, progress float64) {
	if r == nil || r.store == nil || userID == "" {
		return
	}
	r.run("save_progress", userID, id, func(ctx context.Context) error {
		return r.store.SaveProgress(ctx, userID, id, progress)
	})
}

// LoadProgress fetches userID's progress in the background and hands it to
// done. done is not called on failure.
func (r *Reporter) LoadProgress(userID string, done func(map[media.AssetID]float64)) {
	if r == nil || r.store == nil || userID == "" {
		return
	}
	r.run("load_progress", userID, "", func(ctx context.Context) error {
		p, err := r.store.Progress(ctx, userID)
		if err != nil {
			return err
		}
		done(p)
		return nil
	})
}

// Wait blocks until all in-flight calls have finished.
func (r *Reporter) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}

func (r *Reporter) run(op, userID string, id media.AssetID, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.log.Warn("history call failed",
				slog.String("op", op),
				slog.String("user_id", userID),
				slog.String("asset_id", string(id)),
				slog.String("error", err.Error()))
			if r.onFailure != nil {
				r.onFailure(op)
			}
		}
	}()
}
