package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/llm"
	"github.com/dvloznov/finance-assistant/internal/stats"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

// mockTransactionReader is a mock implementation of stats.TransactionReader
type mockTransactionReader struct {
	ReadTransactionsFunc func(ctx context.Context, userID string) ([]domain.Transaction, error)
}

func (m *mockTransactionReader) ReadTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	if m.ReadTransactionsFunc != nil {
		return m.ReadTransactionsFunc(ctx, userID)
	}
	return nil, nil
}

// mockProfileReader is a mock implementation of ProfileReader
type mockProfileReader struct {
	ReadUserProfileFunc func(ctx context.Context, userID string) (*domain.UserProfile, error)
}

func (m *mockProfileReader) ReadUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if m.ReadUserProfileFunc != nil {
		return m.ReadUserProfileFunc(ctx, userID)
	}
	return &domain.UserProfile{UserID: userID}, nil
}

// mockMemoryWriter records appended memories
type mockMemoryWriter struct {
	AppendMemoryFunc func(ctx context.Context, userID, text string, tags []string, source string) error
	texts            []string
	tags             [][]string
	sources          []string
}

func (m *mockMemoryWriter) AppendMemory(ctx context.Context, userID, text string, tags []string, source string) error {
	m.texts = append(m.texts, text)
	m.tags = append(m.tags, tags)
	m.sources = append(m.sources, source)
	if m.AppendMemoryFunc != nil {
		return m.AppendMemoryFunc(ctx, userID, text, tags, source)
	}
	return nil
}

// mockCompleter is a mock implementation of llm.Completer
type mockCompleter struct {
	CompleteTextFunc func(ctx context.Context, system, user string, temperature float32) (string, error)
	calls            int
}

func (m *mockCompleter) CompleteText(ctx context.Context, system, user string, temperature float32) (string, error) {
	m.calls++
	return m.CompleteTextFunc(ctx, system, user, temperature)
}

// scripted answers the intent prompt with intent and the synthesizer prompt
// with synth or synthErr.
func scripted(intent, synth string, synthErr error) *mockCompleter {
	return &mockCompleter{
		CompleteTextFunc: func(ctx context.Context, system, user string, temperature float32) (string, error) {
			if strings.HasPrefix(system, "Classify") {
				if intent == "" {
					return "", llm.ErrUnavailable
				}
				return `{"intent":"` + intent + `"}`, nil
			}
			return synth, synthErr
		},
	}
}

func fixedTransactions(txs []domain.Transaction) *mockTransactionReader {
	return &mockTransactionReader{
		ReadTransactionsFunc: func(ctx context.Context, userID string) ([]domain.Transaction, error) {
			out := make([]domain.Transaction, len(txs))
			copy(out, txs)
			return out, nil
		},
	}
}

func newTestOrchestrator(txs []domain.Transaction, profile *domain.UserProfile, completer llm.Completer, memory MemoryWriter) *Orchestrator {
	clock := func() time.Time { return testNow }
	engine := stats.NewEngine(fixedTransactions(txs), nil, nil, stats.WithClock(clock))
	profiles := &mockProfileReader{}
	if profile != nil {
		profiles.ReadUserProfileFunc = func(ctx context.Context, userID string) (*domain.UserProfile, error) {
			return profile, nil
		}
	}
	return NewOrchestrator(Dependencies{
		Stats:     engine,
		Profiles:  profiles,
		Memory:    memory,
		Completer: completer,
		Now:       clock,
	}, DefaultConfig(), zerolog.Nop())
}

func lastWeekScenario() []domain.Transaction {
	var txs []domain.Transaction
	day := time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		txs = append(txs, domain.Transaction{
			ID: "in" + string(rune('a'+i)), UserID: "u1", Amount: 20, Type: domain.Debit,
			Category: "Food", Description: "Coffee", OccurredAt: day.AddDate(0, 0, -(i % 7)),
		})
	}
	for i := 0; i < 5; i++ {
		txs = append(txs, domain.Transaction{
			ID: "out" + string(rune('a'+i)), UserID: "u1", Amount: 20, Type: domain.Debit,
			Category: "Food", Description: "Lunch", OccurredAt: day.AddDate(0, 0, -(10 + i)),
		})
	}
	return txs
}
