// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvaughan/eventbook/internal/config"
	"github.com/dvaughan/eventbook/internal/database"
	"github.com/dvaughan/eventbook/internal/handler"
	"github.com/dvaughan/eventbook/internal/repository"
	"github.com/dvaughan/eventbook/internal/scheduler"
	"github.com/dvaughan/eventbook/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	// ── 1. Open the SQLite store ─────────────────────────────────────────
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("database open failed", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := repository.New(db)
	if err := store.InitSchema(ctx); err != nil {
		logger.Error("schema initialization failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", cfg.DBPath)

	// ── 2. Wire up layers ────────────────────────────────────────────────
	manager := service.NewEventManager(store, logger)
	if err := manager.InitializeData(ctx); err != nil {
		logger.Error("initial data load failed", "error", err)
		os.Exit(1)
	}

	var sched scheduler.Service = scheduler.Unconfigured{}
	if cfg.SchedulerURL != "" {
		sched = scheduler.NewHTTPClient(cfg.SchedulerURL)
		logger.Info("scheduling service configured", "url", cfg.SchedulerURL)
	}

	api := handler.New(manager, sched)

	// ── 3. Build the router ──────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger(logger))
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)

	r.Route("/venues", func(r chi.Router) {
		r.Post("/", api.CreateVenue)
		r.Get("/", api.ListVenues)
		r.Get("/{id}", api.GetVenue)
		r.Delete("/{id}", api.DeleteVenue)
	})
	r.Route("/participants", func(r chi.Router) {
		r.Post("/", api.CreateParticipant)
		r.Get("/", api.ListParticipants)
		r.Get("/{id}", api.GetParticipant)
		r.Delete("/{id}", api.DeleteParticipant)
	})
	r.Route("/events", func(r chi.Router) {
		r.Post("/", api.CreateEvent)
		r.Get("/", api.ListEvents)
		r.Get("/{id}", api.GetEvent)
		r.Put("/{id}", api.ModifyEvent)
		r.Delete("/{id}", api.DeleteEvent)
		r.Post("/{id}/register", api.Register)
		r.Get("/{id}/registrations", api.ListRegistrations)
		r.Delete("/{id}/registrations/{participantID}", api.Unregister)
	})
	r.Route("/scheduler", func(r chi.Router) {
		r.Post("/slots", api.FindSlots)
		r.Post("/generate", api.GenerateSchedule)
	})

	// ── 4. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	// Final save keeps the store in step with any in-memory-only cascades.
	if !manager.SaveAllData(ctx) {
		logger.Warn("final save completed with errors")
	}
	logger.Info("server stopped")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
