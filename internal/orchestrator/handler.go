package orchestrator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"live-orchestrator/internal/media"
	"live-orchestrator/internal/platform/metrics"
)

// UserHeader carries the authenticated user id set by the auth proxy in
// front of the service. An absent header means an anonymous viewer.
const UserHeader = "X-User-ID"

const maxMessageBytes = 64 << 10

// Handler exposes orchestrator HTTP and WebSocket endpoints using go-chi.
type Handler struct {
	svc      *Service
	log      *slog.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		svc:     svc,
		log:     log,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The front end is served from its own origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// catalogEntry is the wire shape of one catalog asset.
type catalogEntry struct {
	media.Meta
	Live            bool    `json:"live"`
	ViewerCount     int     `json:"viewer_count,omitempty"`
	DurationSeconds int     `json:"duration_seconds,omitempty"`
	WatchProgress   float64 `json:"watch_progress,omitempty"`
}

// ListCatalog handles GET /catalog.
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	assets, err := h.svc.Catalog(r.Context())
	if err != nil {
		h.log.Error("catalog unavailable", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	out := make([]catalogEntry, 0, len(assets))
	for _, a := range assets {
		e := catalogEntry{Meta: a.Info(), Live: a.IsLive()}
		switch v := a.(type) {
		case *media.LiveAsset:
			e.ViewerCount = v.ViewerCount
		case *media.OnDemandAsset:
			e.DurationSeconds = v.DurationSeconds
			e.WatchProgress = v.WatchProgress
		}
		out = append(out, e)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"assets": out})
}

// StartSession handles POST /sessions.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(UserHeader)

	_, snap, err := h.svc.StartSession(r.Context(), userID)
	if err != nil {
		h.log.Error("start session failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusCreated, snap)
}

// GetSession handles GET /sessions/{session_id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Session(chi.URLParam(r, "session_id"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, sess.Snapshot())
}

// PostEvent handles POST /sessions/{session_id}/events.
// Body: { "type": "select", "asset_id": "live-1" }.
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")

	var msg Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&msg); err != nil {
		h.log.Debug("invalid event body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	snap, err := h.svc.Handle(id, msg)
	if errors.Is(err, ErrSessionNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Info("event rejected",
			slog.String("session_id", id),
			slog.String("type", msg.Type),
			slog.String("error", err.Error()))
		h.writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// EndSession handles DELETE /sessions/{session_id}: logout and teardown.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	if err := h.svc.EndSession(id); err != nil {
		h.log.Error("end session failed", slog.String("session_id", id), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.log.Info("session ended", slog.String("session_id", id))
	w.WriteHeader(http.StatusOK)
}

// Stream handles GET /sessions/{session_id}/ws. The client sends Message
// JSON; the server pushes every snapshot.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	sess, err := h.svc.Session(id)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	snaps, cancel, err := sess.Watch()
	if err != nil {
		w.WriteHeader(http.StatusGone)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Info("websocket upgrade failed", slog.String("session_id", id), slog.String("error", err.Error()))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	if h.metrics != nil {
		h.metrics.AddWebsocketClients(1)
		defer h.metrics.AddWebsocketClients(-1)
	}
	h.log.Debug("websocket connected", slog.String("session_id", id))

	// gorilla/websocket allows one concurrent writer; all writes go through
	// this goroutine.
	rejects := make(chan map[string]string, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Unblocks the reader below if a write fails.
		defer conn.Close()
		if err := conn.WriteJSON(sess.Snapshot()); err != nil {
			return
		}
		for {
			select {
			case snap, ok := <-snaps:
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
					return
				}
				if err := conn.WriteJSON(snap); err != nil {
					return
				}
			case rej := <-rejects:
				if err := conn.WriteJSON(rej); err != nil {
					return
				}
			}
		}
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if _, err := sess.Handle(msg); err != nil {
			select {
			case rejects <- map[string]string{"error": err.Error(), "type": msg.Type}:
			default:
			}
		}
	}

	cancel()
	<-done
	h.log.Debug("websocket disconnected", slog.String("session_id", id))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownAsset):
		return http.StatusNotFound
	case errors.Is(err, ErrUnknownEvent), errors.Is(err, ErrUnknownSurface), errors.Is(err, ErrLiveProgress):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Debug("write response failed", slog.String("error", err.Error()))
	}
}
