package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymbuddy-backend/internal/api"
	"gymbuddy-backend/internal/api/handlers"
	"gymbuddy-backend/internal/config"
	"gymbuddy-backend/internal/engine"
	"gymbuddy-backend/internal/sessions"
	"gymbuddy-backend/internal/storage"
	"gymbuddy-backend/internal/sweeper"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	store, err := storage.NewStorage(ctx, cfg.Database.URL, cfg.Redis.URL, cfg.Database.MaxConnections)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	if err := store.DB.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize engine services
	presenceService := engine.NewPresenceService(store.DB, cfg.Presence.TTL)
	discoveryService := engine.NewDiscoveryService(store.DB)
	pingService := engine.NewPingService(store.DB, presenceService, store.Redis)
	timelineService := engine.NewTimelineService(store.DB, store.DB, store.Redis)
	profileService := engine.NewProfileService(store.DB)

	// Initialize the per-match update stream
	streamManager := sessions.NewMatchStreamManager(store.Redis, pingService)

	// Initialize the background presence sweeper
	presenceSweeper := sweeper.New(presenceService, cfg.Redis.URL, cfg.Presence.SweepInterval)
	if err := presenceSweeper.Start(ctx); err != nil {
		log.Fatalf("Failed to start presence sweeper: %v", err)
	}
	defer presenceSweeper.Stop()

	// Initialize router
	deps := &api.Dependencies{
		PresenceHandler: handlers.NewPresenceHandler(presenceService, discoveryService),
		PingHandler:     handlers.NewPingHandler(pingService),
		MatchHandler:    handlers.NewMatchHandler(timelineService),
		ProfileHandler:  handlers.NewProfileHandler(profileService),
		StreamManager:   streamManager,
	}
	r := api.NewRouter(deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
