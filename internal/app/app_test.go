package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/events"
	"github.com/dvloznov/finance-assistant/internal/llm"
	"github.com/dvloznov/finance-assistant/internal/session"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "assistant.db")
	return *cfg
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Close()

	if a.Transactions != a.Store {
		t.Error("sqlite source should read transactions from the local store")
	}
	if _, ok := a.Publisher.(events.Noop); !ok {
		t.Errorf("Publisher = %T, want events.Noop without brokers", a.Publisher)
	}
	if a.Sources.Notion != nil {
		t.Error("Notion client should be nil without a token")
	}

	n, err := a.Store.CountKnowledge(ctx)
	if err != nil {
		t.Fatalf("CountKnowledge() error = %v", err)
	}
	if n == 0 {
		t.Error("builtin knowledge was not seeded")
	}

	res, err := a.Sessions.Chat(ctx, session.ChatRequest{UserID: "u1", Message: "hello there"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if res.Response == "" || res.SessionID == "" {
		t.Errorf("Chat() = %+v, want a response in a session", res)
	}
}

func TestBuild_NoSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Knowledge.SeedBuiltin = false

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Close()

	n, err := a.Store.CountKnowledge(context.Background())
	if err != nil {
		t.Fatalf("CountKnowledge() error = %v", err)
	}
	if n != 0 {
		t.Errorf("knowledge count = %d, want 0", n)
	}
}

func TestOpenTransactions_Unknown(t *testing.T) {
	_, _, err := OpenTransactions(context.Background(), config.StorageConfig{TransactionSource: "csv"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestNewCompleter_NoKey(t *testing.T) {
	c, err := NewCompleter(context.Background(), config.ModelConfig{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewCompleter() error = %v", err)
	}
	if _, ok := c.(llm.Unavailable); !ok {
		t.Errorf("completer = %T, want llm.Unavailable", c)
	}
}

func TestClose_Idempotent(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
