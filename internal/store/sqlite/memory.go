package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// AppendMemory stores one memory entry for userID.
func (s *Store) AppendMemory(ctx context.Context, userID, text string, tags []string, source string) error {
	_, err := s.InsertMemory(ctx, domain.MemoryEntry{UserID: userID, Text: text, Tags: tags, Source: source})
	return err
}

// InsertMemory stores m with a fresh id and timestamp and returns the stored
// entry.
func (s *Store) InsertMemory(ctx context.Context, m domain.MemoryEntry) (*domain.MemoryEntry, error) {
	m.ID = uuid.NewString()
	m.CreatedAt = s.now().UTC()
	if m.Tags == nil {
		m.Tags = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, user_id, text, tags, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Text, encodeTags(m.Tags), m.Source, formatTime(m.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("InsertMemory: %w", err)
	}
	return &m, nil
}

// RecentMemories returns the user's newest memories first.
func (s *Store) RecentMemories(ctx context.Context, userID string, limit int) ([]domain.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, text, tags, source, created_at FROM memories
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentMemories: querying: %w", err)
	}
	defer rows.Close()

	var out []domain.MemoryEntry
	for rows.Next() {
		var (
			m             domain.MemoryEntry
			tags, created string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Text, &tags, &m.Source, &created); err != nil {
			return nil, fmt.Errorf("RecentMemories: scanning: %w", err)
		}
		m.Tags = decodeTags(tags)
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RecentMemories: iterating: %w", err)
	}
	return out, nil
}

// AppendKnowledge stores doc, assigning an id and timestamp when missing.
func (s *Store) AppendKnowledge(ctx context.Context, doc domain.KnowledgeDoc) (*domain.KnowledgeDoc, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now()
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO knowledge (id, title, text, source, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Text, doc.Source, encodeTags(doc.Tags), formatTime(doc.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("AppendKnowledge: %w", err)
	}
	return &doc, nil
}

// RecentKnowledge returns the newest knowledge documents first.
func (s *Store) RecentKnowledge(ctx context.Context, limit int) ([]domain.KnowledgeDoc, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, text, source, tags, created_at FROM knowledge
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentKnowledge: querying: %w", err)
	}
	defer rows.Close()

	var out []domain.KnowledgeDoc
	for rows.Next() {
		var (
			d             domain.KnowledgeDoc
			tags, created string
		)
		if err := rows.Scan(&d.ID, &d.Title, &d.Text, &d.Source, &tags, &created); err != nil {
			return nil, fmt.Errorf("RecentKnowledge: scanning: %w", err)
		}
		d.Tags = decodeTags(tags)
		d.CreatedAt = parseTime(created)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RecentKnowledge: iterating: %w", err)
	}
	return out, nil
}

// CountKnowledge returns the number of stored knowledge documents.
func (s *Store) CountKnowledge(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge`).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountKnowledge: %w", err)
	}
	return n, nil
}

// HasKnowledge reports whether a document with this source and title exists.
func (s *Store) HasKnowledge(ctx context.Context, source, title string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM knowledge WHERE source = ? AND title = ?`, source, title).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("HasKnowledge: %w", err)
	}
	return n > 0, nil
}
