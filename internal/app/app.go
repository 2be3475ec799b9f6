// Package app wires the assistant's components from a Config. Both binaries
// build on it so the API server and the CLI run the same pipeline.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/assistant"
	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/events"
	infraBQ "github.com/dvloznov/finance-assistant/internal/infra/bigquery"
	"github.com/dvloznov/finance-assistant/internal/knowledge"
	"github.com/dvloznov/finance-assistant/internal/llm"
	"github.com/dvloznov/finance-assistant/internal/session"
	"github.com/dvloznov/finance-assistant/internal/stats"
	"github.com/dvloznov/finance-assistant/internal/store/postgres"
	"github.com/dvloznov/finance-assistant/internal/store/sqlite"
)

// App holds the assembled components. Close releases them in reverse order
// of construction.
type App struct {
	Config       config.Config
	Log          zerolog.Logger
	Store        *sqlite.Store
	Transactions stats.TransactionReader
	Engine       *stats.Engine
	Orchestrator *assistant.Orchestrator
	Sessions     *session.Service
	Publisher    events.Publisher
	Syncer       *knowledge.Syncer
	Sources      knowledge.SourceOptions

	closers []func() error
}

// Build opens the stores and assembles the pipeline. On error everything
// opened so far is closed.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	txs, closeTxs, err := OpenTransactions(ctx, cfg.Storage, store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("Build: %w", err)
	}
	a.Transactions = txs
	if closeTxs != nil {
		a.closers = append(a.closers, closeTxs)
	}

	completer, err := NewCompleter(ctx, cfg.Model, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("Build: %w", err)
	}

	a.Engine = stats.NewEngine(txs, store, store)
	a.Orchestrator = assistant.NewOrchestrator(assistant.Dependencies{
		Stats:     a.Engine,
		Profiles:  store,
		Styles:    store,
		Dialogue:  store,
		Memory:    store,
		Completer: completer,
	}, assistant.Config{
		SnapshotWindowDays:  cfg.Assistant.SnapshotWindowDays,
		AnalyticsWindowDays: cfg.Assistant.AnalyticsWindowDays,
		DialogueLimit:       cfg.Assistant.DialogueLimit,
		SemanticLimit:       cfg.Assistant.SemanticLimit,
		CitationLimit:       cfg.Assistant.CitationLimit,
		CurrencySymbol:      cfg.Assistant.CurrencySymbol,
		Temperature:         cfg.Model.Temperature,
	}, log)

	a.Publisher = events.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic)
	a.closers = append(a.closers, a.Publisher.Close)

	a.Sessions = session.NewService(store, a.Orchestrator, session.Config{
		ReuseWindow:  cfg.Assistant.ReuseWindow,
		HistoryLimit: cfg.Assistant.HistoryLimit,
	}, log, session.WithPublisher(a.Publisher))

	a.Syncer = knowledge.NewSyncer(store, log)
	a.Sources = knowledge.SourceOptions{
		GCS:              knowledge.GCSReader{},
		NotionDatabaseID: cfg.Knowledge.NotionDatabaseID,
	}
	if cfg.Knowledge.NotionToken != "" {
		a.Sources.Notion = knowledge.NewNotionClient(cfg.Knowledge.NotionToken)
	}

	if cfg.Knowledge.SeedBuiltin {
		seeded, err := a.Syncer.SeedBuiltin(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("Build: %w", err)
		}
		if seeded {
			log.Info().Msg("Seeded builtin knowledge")
		}
	}

	log.Info().
		Str("transaction_source", cfg.Storage.TransactionSource).
		Bool("model_enabled", cfg.ModelEnabled()).
		Bool("events_enabled", len(cfg.Events.Brokers) > 0).
		Msg("Assistant initialized")

	return a, nil
}

// Close releases every opened resource and joins their errors.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenTransactions selects the transaction reader named by cfg. The local
// sqlite store serves the sqlite source. The returned close func may be nil.
func OpenTransactions(ctx context.Context, cfg config.StorageConfig, local *sqlite.Store) (stats.TransactionReader, func() error, error) {
	switch cfg.TransactionSource {
	case "", config.SourceSQLite:
		return local, nil, nil
	case config.SourcePostgres:
		repo, err := postgres.NewTransactionRepository(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenTransactions: %w", err)
		}
		return repo, func() error { repo.Close(); return nil }, nil
	case config.SourceBigQuery:
		repo, err := infraBQ.NewTransactionRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenTransactions: %w", err)
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("OpenTransactions: unknown transaction source %q", cfg.TransactionSource)
	}
}

// NewCompleter returns a retrying, time-bounded Gemini completer, or
// llm.Unavailable when no API key is configured.
func NewCompleter(ctx context.Context, cfg config.ModelConfig, log zerolog.Logger) (llm.Completer, error) {
	if cfg.APIKey == "" {
		log.Warn().Msg("No model API key configured, answering from deterministic fallbacks")
		return llm.Unavailable{}, nil
	}
	gemini, err := llm.NewGeminiCompleter(ctx, cfg.APIKey, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("NewCompleter: %w", err)
	}
	retryCfg := llm.DefaultRetryConfig
	retryCfg.MaxRetries = cfg.MaxRetries
	retrying := llm.NewRetryingCompleter(gemini, retryCfg, log)
	return llm.WithTimeout(retrying, cfg.Timeout), nil
}
