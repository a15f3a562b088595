package orchestrator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"live-orchestrator/internal/catalog"
	"live-orchestrator/internal/platform/metrics"
)

func newTestHandler(t *testing.T, m *metrics.Metrics) *Handler {
	t.Helper()
	repo := NewInMemoryRepository()
	svc := NewService(repo, ServiceOptions{
		Catalog: catalog.Static(testCatalog),
		Clock:   clock.NewMock(),
		Log:     quietLogger(),
		Metrics: m,
	})
	t.Cleanup(svc.Shutdown)
	return NewHandler(svc, quietLogger(), m)
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/catalog", h.ListCatalog)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.StartSession)
		r.Route("/{session_id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.EndSession)
			r.Post("/events", h.PostEvent)
			r.Get("/ws", h.Stream)
		})
	})
	return r
}

func startSession(t *testing.T, r http.Handler, userID string) Snapshot {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sessions/", nil)
	if userID != "" {
		req.Header.Set(UserHeader, userID)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start session: expected 201, got %d", rec.Code)
	}
	var snap Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func postEvent(r http.Handler, sessionID string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/events", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_ListCatalog(t *testing.T) {
	r := newTestRouter(newTestHandler(t, nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Assets []struct {
			ID              string `json:"id"`
			Live            bool   `json:"live"`
			DurationSeconds int    `json:"duration_seconds"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Assets) != 3 || body.Assets[0].ID != "vod-1" || body.Assets[0].Live || body.Assets[0].DurationSeconds != 600 {
		t.Errorf("unexpected catalog: %+v", body.Assets)
	}
	if !body.Assets[1].Live {
		t.Error("live-1 should be marked live")
	}
}

func TestHandler_StartSession(t *testing.T) {
	r := newTestRouter(newTestHandler(t, nil))

	snap := startSession(t, r, "u1")
	if snap.SessionID == "" || snap.Mode != ModeMainLive || snap.ActiveAssetID != "live-1" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap.SurfaceOfActive != PlacementMain || !snap.Main.Muted {
		t.Errorf("expected muted main placement: %+v", snap)
	}
}

func TestHandler_StartSession_wire_format(t *testing.T) {
	r := newTestRouter(newTestHandler(t, nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/", nil))
	body := rec.Body.String()
	for _, want := range []string{`"mode":"main_live"`, `"surface_of_active":"main"`, `"interaction_unlocked":false`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in %s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHandler_GetSession(t *testing.T) {
	r := newTestRouter(newTestHandler(t, nil))
	snap := startSession(t, r, "")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+snap.SessionID+"/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/nonexistent/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_PostEvent(t *testing.T) {
	m := metrics.New()
	r := newTestRouter(newTestHandler(t, m))
	snap := startSession(t, r, "u1")

	rec := postEvent(r, snap.SessionID, map[string]string{"type": "select", "asset_id": "vod-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Mode != ModeMiniLive || got.FocusedAssetID != "vod-1" || got.Main.AssetID != "vod-1" {
		t.Errorf("unexpected snapshot: %+v", got)
	}
	if got.Version <= snap.Version {
		t.Errorf("version should increase: %d -> %d", snap.Version, got.Version)
	}

	out := httptest.NewRecorder()
	m.Handler(nil).ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(out.Body.String(), `playback_events_total{event="select"} 1`) {
		t.Errorf("select event not counted:\n%s", out.Body.String())
	}
}

func TestHandler_PostEvent_errors(t *testing.T) {
	r := newTestRouter(newTestHandler(t, nil))
	snap := startSession(t, r, "")

	cases := []struct {
		name string
		id   string
		body any
		want int
	}{
		{"unknown_asset", snap.SessionID, map[string]string{"type": "select", "asset_id": "nope"}, http.StatusNotFound},
		{"unknown_type", snap.SessionID, map[string]string{"type": "rewind"}, http.StatusBadRequest},
		{"bad_surface", snap.SessionID, map[string]string{"type": "toggle_mute", "surface": "side"}, http.StatusBadRequest},
		{"progress_on_live", snap.SessionID, map[string]any{"type": "progress", "asset_id": "live-1", "progress": 0.5}, http.StatusBadRequest},
		{"missing_session", "nonexistent", map[string]string{"type": "minimize"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := postEvent(r, tc.id, tc.body); rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestHandler_PostEvent_bad_request(t *testing.T) {
	r := newTestRouter(newTestHandler(t, nil))
	snap := startSession(t, r, "")

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+snap.SessionID+"/events", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_EndSession(t *testing.T) {
	r := newTestRouter(newTestHandler(t, nil))
	snap := startSession(t, r, "u1")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+snap.SessionID+"/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	if rec := postEvent(r, snap.SessionID, map[string]string{"type": "minimize"}); rec.Code != http.StatusNotFound {
		t.Errorf("events after end: expected 404, got %d", rec.Code)
	}

	// Ending again is not an error.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+snap.SessionID+"/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("second end: expected 200, got %d", rec.Code)
	}
}

func TestHandler_Stream(t *testing.T) {
	r := newTestRouter(newTestHandler(t, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()

	snap := startSession(t, r, "u1")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + snap.SessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var initial Snapshot
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if initial.SessionID != snap.SessionID || initial.Mode != ModeMainLive {
		t.Fatalf("initial snapshot: %+v", initial)
	}

	if err := conn.WriteJSON(Message{Type: "minimize"}); err != nil {
		t.Fatal(err)
	}
	for {
		var next Snapshot
		if err := conn.ReadJSON(&next); err != nil {
			t.Fatalf("read pushed snapshot: %v", err)
		}
		if next.Mode == ModeMiniLive {
			if next.Mini.AssetID != "live-1" {
				t.Errorf("mini view: %+v", next.Mini)
			}
			break
		}
	}

	if err := conn.WriteJSON(Message{Type: "rewind"}); err != nil {
		t.Fatal(err)
	}
	var reject map[string]any
	if err := conn.ReadJSON(&reject); err != nil {
		t.Fatalf("read reject: %v", err)
	}
	if reject["type"] != "rewind" || reject["error"] == nil {
		t.Errorf("unexpected reject: %v", reject)
	}
}

func TestHandler_Stream_closes_when_session_ends(t *testing.T) {
	r := newTestRouter(newTestHandler(t, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()

	snap := startSession(t, r, "")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + snap.SessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var initial Snapshot
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+snap.SessionID+"/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("end session: %d", rec.Code)
	}

	for {
		var next Snapshot
		err := conn.ReadJSON(&next)
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure) {
			t.Errorf("expected a normal close, got %v", err)
		}
		break
	}
}

func TestHandler_Stream_not_found(t *testing.T) {
	r := newTestRouter(newTestHandler(t, nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/nonexistent/ws", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
