package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rgaines3/medqa/internal/answer"
	"github.com/rgaines3/medqa/internal/api"
	"github.com/rgaines3/medqa/internal/chunker"
	"github.com/rgaines3/medqa/internal/config"
	"github.com/rgaines3/medqa/internal/embed"
	"github.com/rgaines3/medqa/internal/ocr"
	"github.com/rgaines3/medqa/internal/pipeline"
	"github.com/rgaines3/medqa/internal/session"
)

func main() {
	// Pick up a local .env if present; real env vars win.
	godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Error("create data dir", "error", err)
		os.Exit(1)
	}

	// Initialize clients. The embedding and LLM clients are created once and
	// live for the whole process.
	embedder := embed.NewClient(cfg.EmbedBaseURL, cfg.EmbedAPIKey, cfg.EmbedModel)
	gemini := answer.NewGeminiClient(cfg.GoogleAPIKey, cfg.GeminiModel, cfg.LLMTimeout)
	extractor := ocr.NewExtractor(cfg.TesseractBin, cfg.PdftoppmBin)

	store := session.NewStore(cfg.DataDir)
	pl := pipeline.New(embedder, chunker.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, log)
	ans := answer.NewAnswerer(embedder, gemini, cfg.TopK)

	srv := api.NewServer(store, extractor, pl, ans, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		gemini.Close()
		embedder.Close()
	}()

	log.Info("starting medqa", "port", cfg.Port, "data_dir", cfg.DataDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
