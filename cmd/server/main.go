package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nexasphere/internal/config"
	"nexasphere/internal/httpserver"
	"nexasphere/internal/obs"
	"nexasphere/internal/presence"
	"nexasphere/internal/security"
	storemongo "nexasphere/internal/store/mongo"
	"nexasphere/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := obs.NewLogger(cfg.Env)

	db, err := storemongo.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("failed to connect to mongo", "error", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.Ping(ctx); err != nil {
		cancel()
		logger.Error("mongo ping failed", "error", err)
		os.Exit(1)
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		cancel()
		logger.Error("failed to ensure indexes", "error", err)
		os.Exit(1)
	}
	cancel()

	tokenSvc := security.NewTokenService(cfg.JWTSecret, 24*time.Hour)

	// Presence and the event channel live for the process lifetime; state
	// is lost on restart and clients re-register on reconnect.
	registry := presence.NewMemoryRegistry()
	hub := ws.NewHub(registry, logger)

	router := httpserver.NewRouter(cfg, logger, db, registry, hub, tokenSvc)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
