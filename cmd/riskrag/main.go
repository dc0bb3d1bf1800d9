package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riskrag/internal/app"
	"github.com/kailas-cloud/riskrag/internal/config"
	logpkg "github.com/kailas-cloud/riskrag/internal/logger"
	"github.com/kailas-cloud/riskrag/internal/metrics"
	chiTransport "github.com/kailas-cloud/riskrag/internal/transport/chi"
	analysisuc "github.com/kailas-cloud/riskrag/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/riskrag/internal/usecase/health"
	promptuc "github.com/kailas-cloud/riskrag/internal/usecase/prompt"
	retrievaluc "github.com/kailas-cloud/riskrag/internal/usecase/retrieval"
	"github.com/kailas-cloud/riskrag/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting riskrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("websearch_provider", cfg.WebSearch.Provider),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	ctx := context.Background()

	storage, err := app.OpenStorage(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer storage.Close()

	// Build once, share for the process lifetime
	embedder := app.BuildEmbedder(&cfg, storage.Cache, logger)
	kb, err := app.BuildKnowledge(ctx, &cfg, embedder, logger)
	if err != nil {
		logger.Fatal("Failed to open knowledge base", zap.Error(err))
	}
	logger.Info("Knowledge base ready",
		zap.String("dir", cfg.Index.Dir),
		zap.Int("chunks", kb.Size()),
	)

	models, err := app.BuildModels(&cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build model registry", zap.Error(err))
	}

	searcher, err := app.BuildSearcher(&cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build web search", zap.Error(err))
	}

	assembler, err := promptuc.New()
	if err != nil {
		logger.Fatal("Failed to parse prompt templates", zap.Error(err))
	}

	retriever := retrievaluc.New(kb, searcher, cfg.Index.MaxContexts)
	analysisSvc := analysisuc.New(models, assembler, retriever, storage.Repo, analysisuc.Config{
		KBK:  cfg.Index.KBK,
		WebK: cfg.Index.WebK,
	})

	healthSvc := healthuc.New(storage.Pinger, kb, map[string]healthuc.Checker{
		"embedding": newEmbeddingHealthChecker(embedder),
		"llm":       models,
	})

	server := chiTransport.NewServer(analysisSvc, kb, models, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.Tokens),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}
	if len(cfg.Auth.Tokens) == 0 {
		logger.Warn("No auth tokens configured, requests run anonymously")
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
