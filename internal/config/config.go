// Package config loads the assistant's configuration from defaults, an
// optional .env file and ASSISTANT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. ASSISTANT_SERVER_PORT.
const EnvPrefix = "ASSISTANT"

// Transaction sources.
const (
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
	SourceBigQuery = "bigquery"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Storage   StorageConfig   `json:"storage"`
	Model     ModelConfig     `json:"model"`
	Assistant AssistantConfig `json:"assistant"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Events    EventsConfig    `json:"events"`
	Log       LogConfig       `json:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `json:"host" envconfig:"HOST"`
	Port            int           `json:"port" envconfig:"PORT"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT"`
	CORSOrigin      string        `json:"corsOrigin" envconfig:"CORS_ORIGIN"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects the local store and the transaction source.
type StorageConfig struct {
	SQLitePath        string `json:"sqlitePath" envconfig:"SQLITE_PATH"`
	TransactionSource string `json:"transactionSource" envconfig:"TRANSACTION_SOURCE"`
	PostgresDSN       string `json:"postgresDsn" envconfig:"POSTGRES_DSN"`
	BigQueryProject   string `json:"bigqueryProject" envconfig:"BIGQUERY_PROJECT"`
	BigQueryDataset   string `json:"bigqueryDataset" envconfig:"BIGQUERY_DATASET"`
}

// ModelConfig configures the language model. An empty APIKey disables it.
type ModelConfig struct {
	APIKey      string        `json:"-" envconfig:"API_KEY"`
	Name        string        `json:"name" envconfig:"NAME"`
	Temperature float32       `json:"temperature" envconfig:"TEMPERATURE"`
	MaxRetries  int           `json:"maxRetries" envconfig:"MAX_RETRIES"`
	Timeout     time.Duration `json:"timeout" envconfig:"TIMEOUT"`
}

// AssistantConfig holds the pipeline and session tunables.
type AssistantConfig struct {
	SnapshotWindowDays  int           `json:"snapshotWindowDays" envconfig:"SNAPSHOT_WINDOW_DAYS"`
	AnalyticsWindowDays int           `json:"analyticsWindowDays" envconfig:"ANALYTICS_WINDOW_DAYS"`
	DialogueLimit       int           `json:"dialogueLimit" envconfig:"DIALOGUE_LIMIT"`
	SemanticLimit       int           `json:"semanticLimit" envconfig:"SEMANTIC_LIMIT"`
	CitationLimit       int           `json:"citationLimit" envconfig:"CITATION_LIMIT"`
	CurrencySymbol      string        `json:"currencySymbol" envconfig:"CURRENCY_SYMBOL"`
	ReuseWindow         time.Duration `json:"reuseWindow" envconfig:"REUSE_WINDOW"`
	HistoryLimit        int           `json:"historyLimit" envconfig:"HISTORY_LIMIT"`
}

// KnowledgeConfig configures knowledge seeding and the sync queue.
type KnowledgeConfig struct {
	SeedBuiltin      bool   `json:"seedBuiltin" envconfig:"SEED_BUILTIN"`
	NotionToken      string `json:"-" envconfig:"NOTION_TOKEN"`
	NotionDatabaseID string `json:"notionDatabaseId" envconfig:"NOTION_DATABASE_ID"`
	Workers          int    `json:"workers" envconfig:"WORKERS"`
	QueueSize        int    `json:"queueSize" envconfig:"QUEUE_SIZE"`
}

// EventsConfig configures Kafka. No brokers means events are dropped.
type EventsConfig struct {
	Brokers []string `json:"brokers" envconfig:"BROKERS"`
	Topic   string   `json:"topic" envconfig:"TOPIC"`
	GroupID string   `json:"groupId" envconfig:"GROUP_ID"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `json:"level" envconfig:"LEVEL"`
	JSON  bool   `json:"json" envconfig:"JSON"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigin:      "*",
		},
		Storage: StorageConfig{
			SQLitePath:        "assistant.db",
			TransactionSource: SourceSQLite,
			BigQueryDataset:   "finance",
		},
		Model: ModelConfig{
			Name:        "gemini-2.5-flash",
			Temperature: 0.25,
			MaxRetries:  2,
			Timeout:     30 * time.Second,
		},
		Assistant: AssistantConfig{
			SnapshotWindowDays:  45,
			AnalyticsWindowDays: 90,
			DialogueLimit:       8,
			SemanticLimit:       6,
			CitationLimit:       4,
			CurrencySymbol:      "₹",
			ReuseWindow:         20 * time.Minute,
			HistoryLimit:        80,
		},
		Knowledge: KnowledgeConfig{
			SeedBuiltin: true,
			Workers:     2,
			QueueSize:   100,
		},
		Events: EventsConfig{
			Topic:   "assistant.turns",
			GroupID: "assistant-cli",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads envFile when it exists, then overlays ASSISTANT_* variables on
// the defaults and validates the result. An empty envFile means ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Load: reading %s: %w", envFile, err)
	}

	cfg := Default()
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("Load: processing environment: %w", err)
	}
	cfg.Storage.TransactionSource = strings.ToLower(strings.TrimSpace(cfg.Storage.TransactionSource))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Storage.SQLitePath) == "" {
		return errors.New("sqlite path is required")
	}
	switch c.Storage.TransactionSource {
	case SourceSQLite:
	case SourcePostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return errors.New("postgres transaction source requires POSTGRES_DSN")
		}
	case SourceBigQuery:
		if strings.TrimSpace(c.Storage.BigQueryProject) == "" {
			return errors.New("bigquery transaction source requires BIGQUERY_PROJECT")
		}
	default:
		return fmt.Errorf("unknown transaction source %q", c.Storage.TransactionSource)
	}

	a := c.Assistant
	if a.SnapshotWindowDays <= 0 || a.AnalyticsWindowDays <= 0 {
		return errors.New("statistics windows must be positive")
	}
	if a.DialogueLimit <= 0 || a.SemanticLimit <= 0 || a.CitationLimit <= 0 || a.HistoryLimit <= 0 {
		return errors.New("assistant limits must be positive")
	}
	if a.ReuseWindow <= 0 {
		return errors.New("session reuse window must be positive")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("model temperature %.2f out of range", c.Model.Temperature)
	}
	if c.Knowledge.Workers <= 0 || c.Knowledge.QueueSize <= 0 {
		return errors.New("knowledge queue workers and size must be positive")
	}
	return nil
}

// ModelEnabled reports whether a language model key is configured.
func (c *Config) ModelEnabled() bool {
	return strings.TrimSpace(c.Model.APIKey) != ""
}
