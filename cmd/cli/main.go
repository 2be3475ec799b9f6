package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-assistant/internal/app"
	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/logger"
)

var (
	envFile string
	dbPath  string
	userID  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Finance assistant CLI",
	Long: `Talk to the finance assistant from the terminal.

Seed demo data:     assistant seed
Ask a question:     assistant ask "how much did I spend last week?"
Show a transcript:  assistant history
Summarize a period: assistant summary "last month"`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "dotenv file to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (overrides ASSISTANT_STORAGE_SQLITE_PATH)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "demo", "user id")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Storage.SQLitePath = dbPath
	}
	return cfg, nil
}

// newLogger logs warnings to stderr, or everything with --verbose.
func newLogger(cfg *config.Config) zerolog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Options{Level: level, JSON: cfg.Log.JSON, Output: os.Stderr})
}

// openApp builds the assistant for one command. The caller must Close it.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.Build(ctx, *cfg, newLogger(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

func printHeader(title string) {
	color.New(color.FgCyan, color.Bold).Println(title)
}
