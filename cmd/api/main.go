package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dvloznov/finance-assistant/internal/api"
	"github.com/dvloznov/finance-assistant/internal/api/handlers"
	"github.com/dvloznov/finance-assistant/internal/app"
	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/finance-assistant/internal/logger"
)

func main() {
	// Parse command-line flags
	var (
		envFile = flag.String("env", "", "dotenv file to load (default .env)")
		port    = flag.Int("port", 0, "HTTP server port (overrides ASSISTANT_SERVER_PORT)")
		dbPath  = flag.String("db", "", "sqlite database path (overrides ASSISTANT_STORAGE_SQLITE_PATH)")
		source  = flag.String("source", "", "transaction source: sqlite, postgres or bigquery")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		bootLog := logger.New(logger.Options{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Storage.SQLitePath = *dbPath
	}
	if *source != "" {
		cfg.Storage.TransactionSource = *source
	}

	// Initialize logger
	log := logger.New(logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	assistantApp, err := app.Build(ctx, *cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize assistant")
	}
	defer func() {
		if err := assistantApp.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close resources")
		}
	}()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Knowledge.QueueSize, jobStore,
		inmemory.WithWorkers(cfg.Knowledge.Workers),
		inmemory.WithLogger(logger.ForComponent(log, "knowledge_sync")),
	)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Int("workers", cfg.Knowledge.Workers).Msg("Starting knowledge sync workers")
		if err := jobQueue.Start(workerCtx, assistantApp.Syncer.JobHandler(assistantApp.Sources)); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	router := api.NewRouter(api.Handlers{
		Assistant:    handlers.NewAssistantHandler(assistantApp.Sessions, assistantApp.Orchestrator.Registry(), log),
		Transactions: handlers.NewTransactionsHandler(assistantApp.Engine, log),
		Knowledge:    handlers.NewKnowledgeHandler(jobQueue, log),
		Jobs:         handlers.NewJobsHandler(jobStore, log),
	}, cfg.Server.CORSOrigin, log)

	// The write timeout must outlast a chat turn's completions and retries.
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      otelhttp.NewHandler(router, "assistant-api"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Model.Timeout*time.Duration(cfg.Model.MaxRetries+1) + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
