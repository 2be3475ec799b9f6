package assistant

import (
	"context"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/stats"
)

// StatsEngine is the statistics surface the pipeline reads.
type StatsEngine interface {
	FinancialSnapshot(ctx context.Context, userID string, windowDays int) (*stats.Snapshot, error)
	AnalyticsReport(ctx context.Context, userID string, windowDays int) (*stats.AnalyticsReport, error)
	TransactionSummary(ctx context.Context, userID string, start, end time.Time, limit int) (*stats.TransactionSummary, error)
	SemanticContext(ctx context.Context, userID, query string, limit int) ([]stats.SemanticHit, error)
}

// ProfileReader reads a user's name and goals.
type ProfileReader interface {
	ReadUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// StyleReader reads a user's stored response style preferences.
type StyleReader interface {
	ReadStylePreferences(ctx context.Context, userID string) (*domain.StylePreferences, error)
}

// DialogueReader reads the recent turns of a session, oldest first.
type DialogueReader interface {
	ReadRecentDialogue(ctx context.Context, userID, sessionID string, limit int) ([]domain.DialogueTurn, error)
}

// MemoryWriter appends a durable memory fact for later retrieval.
type MemoryWriter interface {
	AppendMemory(ctx context.Context, userID, text string, tags []string, source string) error
}
