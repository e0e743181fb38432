package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"codexray-backend/internal/api"
	"codexray-backend/internal/auth"
	"codexray-backend/internal/bus"
	"codexray-backend/internal/config"
	"codexray-backend/internal/metrics"
	"codexray-backend/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()
	repo := storage.NewRepository(store)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var publisher metrics.AlertPublisher
	if cfg.NATSURL != "" {
		p, err := bus.NewPublisher(cfg.NATSURL)
		if err != nil {
			logger.Error("failed to connect to nats", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
	}

	sessions := auth.NewStore(time.Duration(cfg.SessionTimeoutSeconds) * time.Second)
	thresholds := metrics.NewThresholds(metrics.Limits{CPU: cfg.CPUThreshold, Memory: cfg.MemoryThreshold})
	collector := metrics.NewCollector(metrics.HostProbe{}, repo, thresholds, publisher, logger)
	collector.Start(time.Duration(cfg.CollectIntervalSeconds) * time.Second)

	handler := &api.Handler{
		Sessions:   sessions,
		Repo:       repo,
		Thresholds: thresholds,
		Collector:  collector,
		Timeout:    5 * time.Second,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	logger.Info("server listening", slog.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("error", err.Error()))
	}
	collector.Stop()
}
