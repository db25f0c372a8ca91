package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/scene-engine/internal/config"
	"github.com/jwebster45206/scene-engine/internal/content"
	"github.com/jwebster45206/scene-engine/internal/handlers"
	"github.com/jwebster45206/scene-engine/internal/logger"
	"github.com/jwebster45206/scene-engine/internal/middleware"
	"github.com/jwebster45206/scene-engine/internal/services/events"
	"github.com/jwebster45206/scene-engine/internal/session"
	"github.com/jwebster45206/scene-engine/internal/storage"
	"github.com/jwebster45206/scene-engine/pkg/state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Scene Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"scene_backend", cfg.SceneBackend,
		"events_backend", cfg.EventsBackend)

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.SessionTTL, log)
	if err != nil {
		log.Error("Invalid Redis configuration", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	var source content.Source
	switch cfg.SceneBackend {
	case config.SceneBackendPostgres:
		pg, err := content.NewPostgresSource(storageCtx, cfg.DatabaseURL)
		if err != nil {
			log.Error("Failed to connect to scene database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := pg.Close(); err != nil {
				log.Error("Error closing scene database", "error", err)
			}
		}()
		source = pg
	default:
		source = content.NewFileSource(cfg.ContentDir)
	}

	var publisher events.Publisher
	var eventsHandler http.Handler
	switch cfg.EventsBackend {
	case config.EventsBackendMQTT:
		mq, err := events.ConnectMQTT(cfg.MQTTURL, "scene-engine-"+uuid.NewString(), log)
		if err != nil {
			log.Error("Failed to connect to MQTT broker", "error", err, "url", cfg.MQTTURL)
			os.Exit(1)
		}
		publisher = mq
	case config.EventsBackendRedis:
		publisher = events.NewRedisBroadcaster(store.Client(), log)
		eventsHandler = handlers.NewEventsHandler(store.Client(), log)
	default:
		publisher = events.Nop{}
	}

	scenes := content.NewCache(source, cfg.StoryStart, log)
	watchCtx, stopWatching := context.WithCancel(context.Background())
	defer stopWatching()
	if err := content.WatchInvalidations(watchCtx, store.Client(), scenes, log); err != nil {
		log.Warn("Scene invalidations unavailable; cached scenes only refresh on @reload", "error", err)
	}

	sessions := session.NewManager(store, scenes, publisher, state.Config{
		StartScene:       cfg.StartScene,
		FirstEndingScene: cfg.FirstEndingScene,
		Title:            cfg.GameTitle,
		Production:       cfg.Production(),
	}, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	gameHandler := handlers.NewGameHandler(sessions, eventsHandler, log)
	mux.Handle("/v1/games", gameHandler)
	mux.Handle("/v1/games/", gameHandler)

	mux.Handle(content.ScenePath, handlers.NewSceneHandler(source, log))

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the events endpoint streams
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := publisher.Close(); err != nil {
		log.Error("Error closing event publisher", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
