package knowledge

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Store is the knowledge persistence the syncer needs.
type Store interface {
	AppendKnowledge(ctx context.Context, doc domain.KnowledgeDoc) (*domain.KnowledgeDoc, error)
	HasKnowledge(ctx context.Context, source, title string) (bool, error)
	CountKnowledge(ctx context.Context) (int, error)
}

// Result summarises one sync run.
type Result struct {
	Source   string `json:"source"`
	Loaded   int    `json:"loaded"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// Syncer imports documents from sources into a Store. A document whose
// source and title are already stored is skipped, so re-running a sync is
// harmless.
type Syncer struct {
	store Store
	log   zerolog.Logger
}

// NewSyncer creates a Syncer writing to store.
func NewSyncer(store Store, log zerolog.Logger) *Syncer {
	return &Syncer{store: store, log: log}
}

// Sync loads src and imports every new, non-empty document.
func (s *Syncer) Sync(ctx context.Context, src Source) (*Result, error) {
	docs, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("Sync: loading %s: %w", src.Name(), err)
	}

	res := &Result{Source: src.Name(), Loaded: len(docs)}
	for _, d := range docs {
		d = Normalize(d)
		if d.Source == "" {
			d.Source = src.Name()
		}
		if d.Title == "" || d.Text == "" {
			res.Skipped++
			continue
		}
		exists, err := s.store.HasKnowledge(ctx, d.Source, d.Title)
		if err != nil {
			return res, fmt.Errorf("Sync: checking %q: %w", d.Title, err)
		}
		if exists {
			res.Skipped++
			continue
		}
		if _, err := s.store.AppendKnowledge(ctx, d); err != nil {
			return res, fmt.Errorf("Sync: storing %q: %w", d.Title, err)
		}
		res.Imported++
	}

	s.log.Info().
		Str("source", res.Source).
		Int("loaded", res.Loaded).
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Msg("knowledge sync completed")
	return res, nil
}

// SeedBuiltin imports the bundled documents when the store holds no
// knowledge yet. It reports whether anything was imported.
func (s *Syncer) SeedBuiltin(ctx context.Context) (bool, error) {
	n, err := s.store.CountKnowledge(ctx)
	if err != nil {
		return false, fmt.Errorf("SeedBuiltin: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	res, err := s.Sync(ctx, BuiltinSource{})
	if err != nil {
		return false, fmt.Errorf("SeedBuiltin: %w", err)
	}
	return res.Imported > 0, nil
}
