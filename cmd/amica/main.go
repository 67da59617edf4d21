package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ecolucci/amica/internal/agent"
	"github.com/ecolucci/amica/internal/config"
	"github.com/ecolucci/amica/internal/httpapi"
	"github.com/ecolucci/amica/internal/observability"
	"github.com/ecolucci/amica/internal/pipeline"
	"github.com/ecolucci/amica/internal/store"
	"github.com/ecolucci/amica/internal/stt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	sessionStore, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL not set, conversation history is in-memory only")
	}

	writer := store.NewWriter(sessionStore, cfg.PersistWorkers, metrics)

	transcriber, err := stt.NewGroqTranscriber(stt.GroqConfig{
		APIKey:  cfg.GroqAPIKey,
		BaseURL: cfg.GroqBaseURL,
		Model:   cfg.STTModel,
	})
	if err != nil {
		log.Fatalf("transcriber init failed: %v", err)
	}

	chatAgent, err := agent.NewGroqAgent(agent.GroqConfig{
		APIKey:       cfg.GroqAPIKey,
		BaseURL:      cfg.GroqBaseURL,
		Model:        cfg.ChatModel,
		SystemPrompt: cfg.SystemPrompt,
	})
	if err != nil {
		log.Fatalf("agent init failed: %v", err)
	}

	turns := pipeline.New(transcriber, chatAgent, writer, metrics, cfg.AudioMinBytes, cfg.AudioMaxBytes)
	lifecycle := pipeline.NewLifecycle(sessionStore, writer, turns, metrics)

	api := httpapi.New(cfg, sessionStore, lifecycle, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	// Drain queued writes before the store goes away so final turns and
	// session close markers are not lost.
	writer.Close()
	if err := sessionStore.Close(); err != nil {
		log.Printf("store close failed: %v", err)
	}

	log.Printf("shutdown complete")
}
