package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"live-orchestrator/internal/catalog"
	"live-orchestrator/internal/history"
	"live-orchestrator/internal/orchestrator"
	"live-orchestrator/internal/platform/config"
	"live-orchestrator/internal/platform/logger"
	"live-orchestrator/internal/platform/metrics"
	"live-orchestrator/internal/sensor"
	"live-orchestrator/internal/surface"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	settings := config.FromEnv()

	log := logger.New(settings.LogLevel, settings.LogFormat)
	met := metrics.New()

	var store history.Store = history.NewMemoryStore()
	if settings.HistoryDBPath != "" {
		db, err := history.OpenSQLite(settings.HistoryDBPath)
		if err != nil {
			log.Error("open history database", "path", settings.HistoryDBPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = db
	}
	reporter := history.NewReporter(store, log, settings.ReportTimeout, met.IncHistoryFailures)

	repo := orchestrator.NewInMemoryRepository()
	svc := orchestrator.NewService(repo, orchestrator.ServiceOptions{
		Catalog:  catalog.FileProvider{Path: settings.CatalogPath},
		Reporter: reporter,
		Metrics:  met,
		Log:      log,
		Config:   orchestrator.Config{ScrollThreshold: settings.ScrollThresholdPx},
		Tracker: sensor.TrackerConfig{
			VisibilityThreshold: settings.VisibilityThreshold,
			FrameInterval:       settings.FrameInterval,
		},
		Surface: surface.Config{
			LoadTimeout:  settings.LoadTimeout,
			CaptionHide:  settings.CaptionHide,
			ControlsHide: settings.ControlsHide,
		},
		Screen: surface.Platform{Supported: settings.Fullscreen},
	})
	h := orchestrator.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveSessions(svc.ActiveSessionCount()) }).ServeHTTP(w, r)
	})
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

	addr := ":" + settings.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", settings.Port,
		"catalog_path", settings.CatalogPath,
		"history_db", settings.HistoryDBPath != "",
		"scroll_threshold_px", settings.ScrollThresholdPx,
		"log_level", settings.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by srv.Shutdown;
	// tearing the sessions down closes their streams.
	svc.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
