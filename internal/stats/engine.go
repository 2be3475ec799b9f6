package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// ErrInvalidRange is returned when a requested interval is empty or inverted.
var ErrInvalidRange = errors.New("invalid time range")

// Corpus sizes for semantic retrieval.
const (
	memoryCorpusLimit      = 300
	knowledgeCorpusLimit   = 300
	transactionCorpusLimit = 200
)

// TransactionReader reads a user's transactions. Implementations must not
// filter by time; the engine applies windows itself.
type TransactionReader interface {
	ReadTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
}

// MemoryReader returns a user's most recent memory entries, newest first.
type MemoryReader interface {
	RecentMemories(ctx context.Context, userID string, limit int) ([]domain.MemoryEntry, error)
}

// KnowledgeReader returns the most recent shared knowledge documents.
type KnowledgeReader interface {
	RecentKnowledge(ctx context.Context, limit int) ([]domain.KnowledgeDoc, error)
}

// Engine computes derived statistics over a user's transactions. It holds no
// state between calls; every report is recomputed from the readers.
type Engine struct {
	transactions TransactionReader
	memories     MemoryReader
	knowledge    KnowledgeReader
	embedder     *Embedder
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's notion of "now".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithEmbedder overrides the embedder used for semantic search.
func WithEmbedder(emb *Embedder) Option {
	return func(e *Engine) {
		e.embedder = emb
	}
}

// NewEngine creates an Engine. memories and knowledge may be nil, in which
// case those corpora are empty.
func NewEngine(transactions TransactionReader, memories MemoryReader, knowledge KnowledgeReader, opts ...Option) *Engine {
	e := &Engine{
		transactions: transactions,
		memories:     memories,
		knowledge:    knowledge,
		embedder:     NewEmbedder(EmbeddingDims),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

func (e *Engine) load(ctx context.Context, userID string) ([]domain.Transaction, error) {
	txs, err := e.transactions.ReadTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortByTime(txs)
	return txs, nil
}

// FinancialSnapshot totals debits and credits over the trailing window.
func (e *Engine) FinancialSnapshot(ctx context.Context, userID string, windowDays int) (*Snapshot, error) {
	txs, err := e.load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("FinancialSnapshot: reading transactions: %w", err)
	}
	return ComputeSnapshot(txs, e.now(), windowDays), nil
}

// AnalyticsReport compares the recent window with the one before it.
func (e *Engine) AnalyticsReport(ctx context.Context, userID string, windowDays int) (*AnalyticsReport, error) {
	txs, err := e.load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("AnalyticsReport: reading transactions: %w", err)
	}
	return ComputeAnalytics(txs, e.now(), windowDays), nil
}

// TransactionSummary summarizes transactions in the half-open interval [start, end).
func (e *Engine) TransactionSummary(ctx context.Context, userID string, start, end time.Time, limit int) (*TransactionSummary, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("TransactionSummary: %w: start %s is not before end %s",
			ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	txs, err := e.load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("TransactionSummary: reading transactions: %w", err)
	}
	return SummarizeTransactions(txs, start, end, limit)
}

// SemanticContext ranks the user's memories, the shared knowledge base and
// recent transactions against query.
func (e *Engine) SemanticContext(ctx context.Context, userID, query string, limit int) ([]SemanticHit, error) {
	var corpus []Document

	if e.memories != nil {
		memories, err := e.memories.RecentMemories(ctx, userID, memoryCorpusLimit)
		if err != nil {
			return nil, fmt.Errorf("SemanticContext: reading memories: %w", err)
		}
		for _, m := range memories {
			corpus = append(corpus, memoryDocument(m))
		}
	}

	if e.knowledge != nil {
		docs, err := e.knowledge.RecentKnowledge(ctx, knowledgeCorpusLimit)
		if err != nil {
			return nil, fmt.Errorf("SemanticContext: reading knowledge: %w", err)
		}
		for _, k := range docs {
			corpus = append(corpus, knowledgeDocument(k))
		}
	}

	txs, err := e.load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SemanticContext: reading transactions: %w", err)
	}
	// newest first
	for i := len(txs) - 1; i >= 0 && len(txs)-i <= transactionCorpusLimit; i-- {
		corpus = append(corpus, transactionDocument(txs[i]))
	}

	return e.embedder.Search(query, corpus, limit), nil
}

// sortByTime orders transactions oldest first, breaking ties by ID so every
// report is reproducible for the same input set.
func sortByTime(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].OccurredAt.Equal(txs[j].OccurredAt) {
			return txs[i].ID < txs[j].ID
		}
		return txs[i].OccurredAt.Before(txs[j].OccurredAt)
	})
}
